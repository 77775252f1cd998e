package news

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
)

type (
	LikeResult struct {
		Liked     bool `json:"liked"`
		LikeCount int  `json:"like_count"`
	}

	BookmarkResult struct {
		Bookmarked bool `json:"bookmarked"`
	}

	CommentsResult struct {
		Comments     []Comment `json:"comments"`
		CommentCount int       `json:"comment_count"`
	}

	// UserDashboard is the reader's account page.
	UserDashboard struct {
		Bookmarks []Article `json:"bookmarks"`
		Likes     []Article `json:"likes"`
		Comments  []Comment `json:"comments"`
	}
)

// ToggleLike likes the article for the user, or removes the like if there was one.
func (svc *Service) ToggleLike(ctx context.Context, articleID, userID, ip string) (LikeResult, error) {
	if _, err := svc.repo.GetArticle(ctx, GetFilter{ID: articleID}); err != nil {
		return LikeResult{}, err
	}

	var res LikeResult
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		like, err := svc.repo.GetLike(ctx, articleID, userID, exec)
		switch {
		case err == nil:
			if err = svc.repo.DeleteLike(ctx, like.ID, exec); err != nil {
				return errors.Wrap(err, "deleting like")
			}
		case core.IsNotFound(err):
			now := core.Now()
			_, err = svc.repo.CreateLike(ctx, Like{
				ArticleID: articleID,
				UserID:    null.StringFrom(userID),
				IPAddress: ip,
				CreatedAt: now,
				UpdatedAt: now,
			}, exec)
			if err != nil {
				return errors.Wrap(err, "creating like")
			}
			res.Liked = true
		default:
			return errors.Wrap(err, "finding like")
		}

		res.LikeCount, err = svc.repo.CountLikes(ctx, articleID, exec)
		return errors.Wrap(err, "counting likes")
	})
	if err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

func (svc *Service) ToggleBookmark(ctx context.Context, articleID, userID string) (BookmarkResult, error) {
	if _, err := svc.repo.GetArticle(ctx, GetFilter{ID: articleID}); err != nil {
		return BookmarkResult{}, err
	}

	var res BookmarkResult
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		bm, err := svc.repo.GetBookmark(ctx, articleID, userID, exec)
		switch {
		case err == nil:
			return errors.Wrap(svc.repo.DeleteBookmark(ctx, bm.ID, exec), "deleting bookmark")
		case core.IsNotFound(err):
			now := core.Now()
			_, err = svc.repo.CreateBookmark(ctx, Bookmark{
				ArticleID: articleID,
				UserID:    userID,
				CreatedAt: now,
				UpdatedAt: now,
			}, exec)
			res.Bookmarked = err == nil
			return errors.Wrap(err, "creating bookmark")
		default:
			return errors.Wrap(err, "finding bookmark")
		}
	})
	if err != nil {
		return BookmarkResult{}, err
	}
	return res, nil
}

func (svc *Service) activeComments(ctx context.Context, articleID string) ([]Comment, error) {
	active := true
	comments, err := svc.repo.QueryComments(ctx, CommentFilter{ArticleID: articleID, IsActive: &active, Oldest: true})
	if err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	if comments == nil {
		comments = []Comment{}
	}
	return comments, nil
}

// AddComment comments a published article and returns its active comments.
func (svc *Service) AddComment(ctx context.Context, articleID, userID, content string) (CommentsResult, error) {
	a, err := svc.repo.GetArticle(ctx, GetFilter{ID: articleID, Status: StatusPublished})
	if err != nil {
		return CommentsResult{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return CommentsResult{}, core.NewFieldError("content", ErrEmptyComment.Error())
	}

	now := core.Now()
	_, err = svc.repo.CreateComment(ctx, Comment{
		ArticleID: a.ID,
		UserID:    userID,
		Content:   content,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return CommentsResult{}, errors.Wrap(err, "creating comment")
	}

	comments, err := svc.activeComments(ctx, a.ID)
	if err != nil {
		return CommentsResult{}, err
	}
	return CommentsResult{Comments: comments, CommentCount: len(comments)}, nil
}

// DeleteComment deletes one of the user's own comments.
func (svc *Service) DeleteComment(ctx context.Context, id, userID string) error {
	c, err := svc.repo.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if c.UserID != userID {
		return ErrCommentNotFound
	}
	_, err = svc.repo.DeleteComments(ctx, []string{id})
	return errors.Wrap(err, "deleting comment")
}

func (svc *Service) UserDashboard(ctx context.Context, userID string) (UserDashboard, error) {
	var (
		dash UserDashboard
		err  error
	)
	if dash.Bookmarks, err = svc.repo.BookmarkedArticles(ctx, userID); err != nil {
		return UserDashboard{}, errors.Wrap(err, "querying bookmarks")
	}
	if dash.Likes, err = svc.repo.LikedArticles(ctx, userID); err != nil {
		return UserDashboard{}, errors.Wrap(err, "querying likes")
	}
	if dash.Comments, err = svc.repo.QueryComments(ctx, CommentFilter{UserID: userID}); err != nil {
		return UserDashboard{}, errors.Wrap(err, "querying comments")
	}
	return dash, nil
}
