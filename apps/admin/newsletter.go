package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/trezcool/habari/core/newsletter"
)

func (cli *commandLine) sendNewsletter(ref string, force bool) error {
	res, err := cli.newsletterSvc.SendNow(context.Background(), ref, force)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "newsletter sent: %d delivered, %d failed\n", res.Sent, res.Failed)
	return nil
}

// exportSubscribers writes the active subscribers (all of them with includeInactive) to path, or to the CLI output.
func (cli *commandLine) exportSubscribers(domain string, includeInactive bool, path string) (err error) {
	ctx := context.Background()
	var filter newsletter.QueryFilter
	if domain != "" {
		s, err := cli.siteSvc.GetByDomain(ctx, domain)
		if err != nil {
			return err
		}
		filter.SiteID = s.ID
	}
	if !includeInactive {
		active := true
		filter.IsActive = &active
	}

	var w io.Writer = cli.out
	if path != "" {
		file, ferr := os.Create(path)
		if ferr != nil {
			return errors.Wrap(ferr, "creating export file")
		}
		defer func() {
			if cerr := file.Close(); err == nil {
				err = errors.Wrap(cerr, "closing export file")
			}
		}()
		w = file
	}
	return cli.newsletterSvc.ExportCSV(ctx, w, filter)
}
