package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/approval"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/auth"
)

type rootOptions struct {
	chain   string
	network string
	app     *app
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "mwctl",
		Short:        "Mirror World wallet session and approval client",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if !cmd.Flags().Changed("chain") {
				opts.chain = cfg.Chain
			}
			if !cmd.Flags().Changed("network") {
				opts.network = cfg.Network
			}

			a, err := newApp(cmd.Context(), cfg, opts.chain, opts.network, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.app != nil {
				opts.app.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.chain, "chain", "", "chain to operate on (default MW_CHAIN)")
	root.PersistentFlags().StringVar(&opts.network, "network", "", "network of the chain (default MW_NETWORK)")

	root.AddCommand(
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newApproveCmd(opts),
		newChainCmd(opts),
		newShellCmd(opts),
	)
	return root
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in through the wallet UI, or with --email and --password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			return a.run(cmd.Context(), func(ctx context.Context) error {
				return a.login(ctx, email, password)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.MarkFlagsRequiredTogether("email", "password")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the persisted session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			return a.run(cmd.Context(), a.logout)
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user and wallet addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			return a.run(cmd.Context(), a.whoami)
		},
	}
}

func newApproveCmd(opts *rootOptions) *cobra.Command {
	var params []string
	cmd := &cobra.Command{
		Use:       "approve <type> <value>",
		Short:     "Ask the user to approve an action",
		Args:      cobra.ExactArgs(2),
		ValidArgs: actionTypeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseApproval(args[0], args[1], params)
			if err != nil {
				return err
			}
			a := opts.app
			return a.run(cmd.Context(), func(ctx context.Context) error {
				return a.approve(ctx, req)
			})
		},
	}
	cmd.Flags().StringArrayVar(&params, "param", nil, "action parameter as key=value, repeatable")
	return cmd
}

func newChainCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chain",
		Short: "Show the active chain and every supported network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.app.printChains()
			return nil
		},
	}
}

func newShellCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := opts.app
			return a.run(cmd.Context(), func(ctx context.Context) error {
				newShell(ctx, a).Run()
				return nil
			})
		},
	}
}

func actionTypeNames() []string {
	types := approval.ActionTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

func parseApproval(actionType, value string, params []string) (approval.ActionRequest, error) {
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return approval.ActionRequest{}, fmt.Errorf("invalid value %q: %w", value, err)
	}

	req := approval.ActionRequest{Type: approval.ActionType(actionType), Value: amount}
	for _, p := range params {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return approval.ActionRequest{}, fmt.Errorf("invalid param %q, want key=value", p)
		}
		if req.Params == nil {
			req.Params = map[string]any{}
		}
		req.Params[k] = v
	}
	return req, nil
}

func (a *app) login(ctx context.Context, email, password string) error {
	var (
		res auth.LoginResult
		err error
	)
	if email != "" {
		res, err = a.sdk.Auth().LoginWithPassword(ctx, email, password)
	} else {
		ctx, cancel := context.WithTimeout(ctx, a.cfg.LoginTimeout)
		defer cancel()
		res, err = a.sdk.Auth().Login(ctx)
	}

	switch {
	case errors.Is(err, auth.ErrCancelled):
		fmt.Fprintln(a.out, "Login was not completed in time.")
		return nil
	case err != nil:
		return err
	case res.Status == auth.LoginUnavailable:
		fmt.Fprintln(a.out, "No wallet UI is available. Set MW_RELAY_URL or log in with --email.")
		return nil
	}

	fmt.Fprintln(a.out, "Logged in.")
	a.printUser(res.User)
	return nil
}

func (a *app) logout(ctx context.Context) error {
	if err := a.sdk.Auth().Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	if a.sdk.Auth().State() != auth.Authenticated {
		fmt.Fprintln(a.out, "Not authenticated. Please log in first.")
		return nil
	}
	user, err := a.sdk.Auth().FetchUser(ctx)
	if err != nil {
		return err
	}
	a.printUser(user)
	return nil
}

func (a *app) approve(ctx context.Context, req approval.ActionRequest) error {
	res, err := a.sdk.Approvals().RequestApproval(ctx, req)
	var denial *approval.DenialError
	switch {
	case errors.As(err, &denial):
		fmt.Fprintf(a.out, "Action %s was denied.\n", denial.UUID)
		return nil
	case err != nil:
		return err
	}
	a.printApproval(res)
	return nil
}
