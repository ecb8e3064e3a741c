package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/goalbot/core/buildinfo"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())
	require.Equal(t, buildinfo.String()+"\n", out.String())
}

func TestLinkRequiresFlags(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"link", "--code", "abc"})

	err := root.Execute()
	require.ErrorContains(t, err, "account")
}

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	require.Subset(t, names, []string{"run", "migrate", "link", "version"})
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}
