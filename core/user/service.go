package user

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/habari/core"
	"github.com/trezcool/habari/core/site"
)

var (
	// errors
	ErrNotFound             = core.NewNotFoundError("user")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrUsernameExists       = errors.New("a user with this username already exists")
	ErrRegistrationFailed   = errors.New("could not create the account, please check your details and try again")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")
	ErrInvalidResetLink     = errors.New("the password reset link is invalid or has expired")
	ErrIncorrectPassword    = errors.New("incorrect password")
	ErrNoEmail              = errors.New("add an email address to your account to subscribe to the newsletter")
)

const NewsletterSubscribe = "subscribe"

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists when another user (not excludedID) uses them.
		CheckUniqueness(ctx context.Context, username, email, excludedID string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of username, email, first or last name.
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// DeleteUsers removes users. Their comments and bookmarks go with them, while their likes
		// and authored articles are kept with a null reference.
		DeleteUsers(ctx context.Context, ids []string, exec ...core.DBExecutor) error
	}

	// NewsletterSubscriber manages the newsletter subscriptions of account emails.
	NewsletterSubscriber interface {
		Subscribe(ctx context.Context, siteID, email string) (created bool, err error)
		Unsubscribe(ctx context.Context, siteID, email string) error
		IsSubscribed(ctx context.Context, siteID, email string) (bool, error)
	}

	Service interface {
		Register(ctx context.Context, nu NewUser, st site.Site) (User, error)
		Create(ctx context.Context, nu NewUser) (User, error)
		Authenticate(ctx context.Context, login, pwd string) (User, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsername(ctx context.Context, uname string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, login string) (User, error)
		Update(ctx context.Context, orig User, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
		DeleteAccount(ctx context.Context, usr User, password string) error
		RequestPasswordReset(ctx context.Context, email string, st site.Site) error
		ResetPassword(ctx context.Context, rp ResetUserPassword) error
		ToggleNewsletter(ctx context.Context, usr User, siteID, action string) (bool, error)
		NewsletterStatus(ctx context.Context, usr User, siteID string) (bool, error)
	}

	service struct {
		repo       Repository
		mailSvc    core.EmailService
		newsletter NewsletterSubscriber
		tokens     tokenGenerator
		logger     core.Logger
		secureSSL  bool
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	mailSvc core.EmailService,
	newsletter NewsletterSubscriber,
	logger core.Logger,
	conf *core.Config,
) Service {
	return newService(repo, mailSvc, newsletter, logger, conf)
}

func newService(
	repo Repository,
	mailSvc core.EmailService,
	newsletter NewsletterSubscriber,
	logger core.Logger,
	conf *core.Config,
) *service {
	return &service{
		repo:       repo,
		mailSvc:    mailSvc,
		newsletter: newsletter,
		tokens:     newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		logger:     logger,
		secureSSL:  conf.SecureSSL,
	}
}

func (svc *service) checkUniqueness(ctx context.Context, uname, email, excludedID string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, excludedID); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) newUser(ctx context.Context, nu NewUser) (User, error) {
	now := core.Now()
	usr := User{
		Username:  nu.Username,
		Email:     nu.Email,
		FirstName: nu.FirstName,
		LastName:  nu.LastName,
		Role:      nu.Role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.Role == "" {
		usr.Role = RoleReader
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Register creates a reader account and, if asked to, subscribes its email to the site's newsletter.
// A taken email is reported without telling whether the account exists.
func (svc *service) Register(ctx context.Context, nu NewUser, st site.Site) (User, error) {
	nu.Role = RoleReader
	if err := svc.repo.CheckUniqueness(ctx, nu.Username, nu.Email, ""); err != nil {
		switch errors.Cause(err) {
		case ErrEmailExists:
			return User{}, core.NewFieldError("email", ErrRegistrationFailed.Error())
		case ErrUsernameExists:
			return User{}, core.NewFieldError("username", ErrUsernameExists.Error())
		default:
			return User{}, errors.Wrap(err, "checking uniqueness")
		}
	}

	usr, err := svc.newUser(ctx, nu)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}

	if nu.SubscribeNewsletter && usr.Email != "" && svc.newsletter != nil {
		// the account exists at this point: a failed opt-in must not fail the registration
		if _, err := svc.newsletter.Subscribe(ctx, st.ID, usr.Email); err != nil {
			svc.logger.Error("newsletter opt-in failed", errors.Wrap(err, "subscribing to newsletter"), usr)
		}
	}
	return usr, nil
}

// Create is used by admins and may set any role.
func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := svc.checkUniqueness(ctx, nu.Username, nu.Email, ""); err != nil {
		return User{}, err
	}
	return svc.newUser(ctx, nu)
}

func (svc *service) Authenticate(ctx context.Context, login, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, login)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	return svc.SetLastLogin(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, login string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(login, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, orig User, uu UpdateUser) (User, error) {
	if err := svc.checkUniqueness(ctx, uu.Username, uu.Email, orig.ID); err != nil {
		return User{}, err
	}

	usr := orig
	usr.Username = uu.Username
	usr.Email = uu.Email
	usr.FirstName = uu.FirstName
	usr.LastName = uu.LastName
	usr.Bio = uu.Bio
	usr.AvatarURL = uu.AvatarURL
	usr.Role = uu.Role
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	usr.UpdatedAt = core.Now()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = null.TimeFrom(core.Now())
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return svc.repo.DeleteUsers(ctx, ids)
}

// DeleteAccount deletes the user's own account once their password is confirmed.
func (svc *service) DeleteAccount(ctx context.Context, usr User, password string) error {
	if err := usr.CheckPassword(password); err != nil {
		return core.NewFieldError("password", ErrIncorrectPassword.Error())
	}
	return svc.repo.DeleteUsers(ctx, []string{usr.ID})
}

// RequestPasswordReset mails a reset link to the active user owning email.
// The link always points to the site's configured domain.
func (svc *service) RequestPasswordReset(ctx context.Context, email string, st site.Site) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	go svc.sendPasswordResetMail(usr, st)
	return nil
}

func (svc *service) passwordResetURL(usr User, st site.Site) string {
	scheme := "http"
	if svc.secureSSL {
		scheme = "https"
	}
	q := url.Values{}
	q.Set("uid", EncodeUID(usr))
	q.Set("token", svc.tokens.makeToken(usr))
	u := url.URL{Scheme: scheme, Host: st.Domain, Path: "/accounts/reset/", RawQuery: q.Encode()}
	return u.String()
}

func (svc *service) sendPasswordResetMail(usr User, st site.Site) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.FullName(), Address: usr.Email}},
		Subject:      fmt.Sprintf("Password reset on %s", st.Name),
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":     usr.FullName(),
			"Username": usr.Username,
			"SiteName": st.Name,
			"ResetURL": svc.passwordResetURL(usr, st),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetUserPassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidResetLink)
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrInvalidResetLink)
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err := svc.tokens.verifyToken(usr, rp.Token); err != nil {
		return core.NewValidationError(ErrInvalidResetLink)
	}

	if err := usr.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.Now()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating password")
}

// ToggleNewsletter subscribes (action "subscribe") or unsubscribes the user's email
// and reports the resulting subscription state.
func (svc *service) ToggleNewsletter(ctx context.Context, usr User, siteID, action string) (bool, error) {
	if usr.Email == "" {
		return false, core.NewFieldError("email", ErrNoEmail.Error())
	}
	if action == NewsletterSubscribe {
		if _, err := svc.newsletter.Subscribe(ctx, siteID, usr.Email); err != nil {
			return false, errors.Wrap(err, "subscribing to newsletter")
		}
		return true, nil
	}
	if err := svc.newsletter.Unsubscribe(ctx, siteID, usr.Email); err != nil {
		return false, errors.Wrap(err, "unsubscribing from newsletter")
	}
	return false, nil
}

func (svc *service) NewsletterStatus(ctx context.Context, usr User, siteID string) (bool, error) {
	if usr.Email == "" {
		return false, nil
	}
	return svc.newsletter.IsSubscribed(ctx, siteID, usr.Email)
}
