package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/c-bata/go-prompt"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

const promptPrefix = "mw> "

// shell is an interactive loop over the same operations as the subcommands.
type shell struct {
	ctx context.Context
	app *app
}

func newShell(ctx context.Context, a *app) *shell {
	return &shell{ctx: ctx, app: a}
}

func (s *shell) Run() {
	p := prompt.New(
		s.Execute,
		s.Complete,
		prompt.OptionPrefix(promptPrefix),
		prompt.OptionTitle("mwctl"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return breakline && strings.TrimSpace(in) == "exit"
		}),
		prompt.OptionAddKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn:  func(*prompt.Buffer) {},
		}),
	)
	p.Run()
}

func (s *shell) Complete(d prompt.Document) []prompt.Suggest {
	return prompt.FilterHasPrefix(s.complete(d.TextBeforeCursor()), d.GetWordBeforeCursor(), true)
}

func (s *shell) complete(text string) []prompt.Suggest {
	args := strings.Split(text, " ")

	if len(args) < 2 {
		return []prompt.Suggest{
			{Text: "login", Description: "Log in through the wallet UI, or with an email and password"},
			{Text: "logout", Description: "Log out and forget the persisted session"},
			{Text: "whoami", Description: "Show the logged in user"},
			{Text: "approve", Description: "Ask the user to approve an action"},
			{Text: "chain", Description: "Show or switch the active chain"},
			{Text: "exit", Description: "Exit the shell"},
		}
	}

	switch args[0] {
	case "approve":
		if len(args) == 2 {
			return actionTypeSuggestions()
		}
	case "chain":
		switch len(args) {
		case 2:
			suggestions := make([]prompt.Suggest, 0, len(chain.Chains()))
			for _, c := range chain.Chains() {
				suggestions = append(suggestions, prompt.Suggest{Text: c.String()})
			}
			return suggestions
		case 3:
			networks := chain.Networks(chain.Chain(args[1]))
			suggestions := make([]prompt.Suggest, 0, len(networks))
			for _, n := range networks {
				suggestions = append(suggestions, prompt.Suggest{Text: n.String()})
			}
			return suggestions
		}
	}
	return nil
}

func actionTypeSuggestions() []prompt.Suggest {
	names := actionTypeNames()
	suggestions := make([]prompt.Suggest, len(names))
	for i, name := range names {
		suggestions[i] = prompt.Suggest{Text: name}
	}
	return suggestions
}

func (s *shell) Execute(in string) {
	args := strings.Fields(in)
	if len(args) == 0 {
		return
	}

	if err := s.execute(args); err != nil {
		fmt.Fprintf(s.app.out, "Error: %s\n", err.Error())
	}
}

func (s *shell) execute(args []string) error {
	a := s.app
	switch args[0] {
	case "login":
		switch len(args) {
		case 1:
			return a.login(s.ctx, "", "")
		case 3:
			return a.login(s.ctx, args[1], args[2])
		}
		fmt.Fprintln(a.out, "Usage: login [<email> <password>]")
	case "logout":
		return a.logout(s.ctx)
	case "whoami":
		return a.whoami(s.ctx)
	case "approve":
		if len(args) < 3 {
			fmt.Fprintln(a.out, "Usage: approve <type> <value> [key=value...]")
			return nil
		}
		req, err := parseApproval(args[1], args[2], args[3:])
		if err != nil {
			return err
		}
		return a.approve(s.ctx, req)
	case "chain":
		switch len(args) {
		case 1:
			a.printChains()
		case 3:
			cfg, err := chain.ParseConfig(args[1], args[2])
			if err != nil {
				return err
			}
			if err := a.sdk.SetChainConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Switched to %s.\n", cfg)
		default:
			fmt.Fprintln(a.out, "Usage: chain [<chain> <network>]")
		}
	case "exit":
	default:
		fmt.Fprintf(a.out, "Unknown command: %s\n", args[0])
	}
	return nil
}
