package main

import (
	"context"
	"fmt"

	"github.com/trezcool/habari/core/site"
)

func (cli *commandLine) addSite(domain, name string) error {
	ns := site.NewSite{Domain: domain, Name: name}
	if err := ns.Validate(cli.validate); err != nil {
		return err
	}
	s, err := cli.siteSvc.Create(context.Background(), ns)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created site %q (%s)\n", s.Domain, s.ID)
	return nil
}
