package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/approval"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/auth"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

func (a *app) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(a.out)
	return t
}

func (a *app) printUser(user auth.User) {
	t := a.newTable()
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendSeparator()
	t.AppendRow(table.Row{"ID", user.ID})
	t.AppendRow(table.Row{"Email", user.Email})
	t.AppendRow(table.Row{"Username", user.Username})
	for _, c := range chain.Chains() {
		if addr, ok := user.Address(c); ok {
			t.AppendRow(table.Row{fmt.Sprintf("%s address", c), addr})
		}
	}
	t.Render()
}

func (a *app) printChains() {
	active := a.sdk.ChainConfig()

	t := a.newTable()
	t.AppendHeader(table.Row{"Chain", "Network", "Active"})
	t.AppendSeparator()
	for _, c := range chain.Chains() {
		for _, n := range chain.Networks(c) {
			marker := ""
			if active.Chain == c && active.Network == n {
				marker = "*"
			}
			t.AppendRow(table.Row{c, n, marker})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	t.Render()
}

func (a *app) printApproval(res approval.Approval) {
	t := a.newTable()
	t.AppendHeader(table.Row{"Status", "Action", "Type", "Value", "Authorization Token"})
	t.AppendSeparator()
	t.AppendRow(table.Row{res.Status, res.Action.UUID, res.Action.Type, res.Action.Value.String(), res.AuthorizationToken})
	t.Render()
}
