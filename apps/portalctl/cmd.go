package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/trezcool/escuela/core"
	"github.com/trezcool/escuela/core/auth"
	"github.com/trezcool/escuela/core/dashboard"
	"github.com/trezcool/escuela/core/panel"
	"github.com/trezcool/escuela/core/session"
	mediasvc "github.com/trezcool/escuela/services/media"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type backend interface {
	auth.Authenticator
	CarouselImages(ctx context.Context) ([]string, error)
}

type commandLine struct {
	backend backend
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -email EMAIL - sign in against the backend and show the user's dashboard")
	fmt.Fprintln(cli.out, "  views              - list the admin panels")
	fmt.Fprintln(cli.out, "  carousel           - check the login carousel images")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginEmail := loginCmd.String("email", "", "The user's email. The password will be prompted next.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(context.Background(), *loginEmail, string(pwd))
	case "views":
		cli.views()
		return nil
	case "carousel":
		return cli.carousel(context.Background())
	default:
		cli.printUsage()
		return errHelp
	}
}

// login runs the portal's two-step login on a throwaway session.
func (cli *commandLine) login(ctx context.Context, email, pwd string) error {
	sess := session.New(uuid.NewString())
	flow := auth.NewFlow(cli.backend)

	if err := flow.SubmitEmail(ctx, sess, email); err != nil {
		return errors.New(core.UserMessage(err, err.Error()))
	}
	usr, err := flow.SubmitPassword(ctx, sess, pwd)
	if err != nil {
		return errors.New(core.UserMessage(err, err.Error()))
	}

	dest, err := dashboard.Resolve(&usr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s\n", dest.Welcome.Message)
	fmt.Fprintf(cli.out, "dashboard: %s\n", dest.Dashboard)
	fmt.Fprintf(cli.out, "path:      %s\n", dest.Path)
	fmt.Fprintf(cli.out, "name:      %s\n", dest.Nav.DisplayName)
	return nil
}

func (cli *commandLine) views() {
	for _, v := range panel.AllViews() {
		spec := v.Spec()
		perPage := "-"
		if spec.PerPage > 0 {
			perPage = fmt.Sprint(spec.PerPage)
		}
		fmt.Fprintf(cli.out, "%-18s %-20s %-12s %s\n", spec.Key, spec.Title, spec.Group, perPage)
	}
}

func (cli *commandLine) carousel(ctx context.Context) error {
	imgs, err := cli.backend.CarouselImages(ctx)
	if err != nil {
		return errors.New(core.UserMessage(err, err.Error()))
	}
	for i, img := range imgs {
		data, err := mediasvc.Decode(img)
		if err != nil {
			fmt.Fprintf(cli.out, "%d: unreadable (%v)\n", i, err)
			continue
		}
		fmt.Fprintf(cli.out, "%d: %s, %d bytes\n", i, mimetype.Detect(data), len(data))
	}
	return nil
}
