package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/ir"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "querystate", cmd.Use)
	assert.Contains(t, cmd.Long, "reconcile URLs")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"compile", "validate", "reconcile", "serve", "replay", "test", "trace"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"debug", "compress", "compression-key"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "missing flag --%s", name)
	}
}

func TestSubcommandFlags(t *testing.T) {
	tests := []struct {
		command  string
		flag     string
		defValue string
	}{
		{"compile", "output", ""},
		{"reconcile", "route", ""},
		{"reconcile", "db", ""},
		{"reconcile", "max-redirects", "8"},
		{"replay", "db", ""},
		{"replay", "token", ""},
		{"test", "update", "false"},
		{"test", "filter", ""},
		{"trace", "db", ""},
		{"trace", "token", ""},
		{"trace", "outcome", ""},
		{"trace", "route", ""},
		{"serve", "addr", ":8080"},
		{"serve", "redirect-status", "302"},
	}

	root := NewRootCommand()
	for _, tt := range tests {
		t.Run(tt.command+"/"+tt.flag, func(t *testing.T) {
			sub, _, err := root.Find([]string{tt.command})
			require.NoError(t, err)

			flag := sub.Flags().Lookup(tt.flag)
			require.NotNil(t, flag)
			assert.Equal(t, tt.defValue, flag.DefValue)
		})
	}
}

func TestRequiredDatabaseFlag(t *testing.T) {
	for _, name := range []string{"trace", "replay"} {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)

			args := []string{name}
			if name == "replay" {
				args = append(args, "../../testdata/routes/demo.yaml")
			}
			cmd.SetArgs(args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), `"db" not set`)
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--format", "xml", "validate", "../../testdata/routes/demo.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestEngineOptions(t *testing.T) {
	doc := ir.Options{CompressionKey: "s"}

	t.Run("flags unset keep document options", func(t *testing.T) {
		opts := (&RootOptions{}).engineOptions(doc)
		assert.Equal(t, doc, opts)
	})

	t.Run("flags switch behavior on", func(t *testing.T) {
		opts := (&RootOptions{Debug: true, Compress: true, CompressionKey: "z"}).engineOptions(doc)
		assert.True(t, opts.Debug)
		assert.True(t, opts.UseCompression)
		assert.Equal(t, "z", opts.CompressionKey)
	})

	t.Run("flags never switch behavior off", func(t *testing.T) {
		opts := (&RootOptions{}).engineOptions(ir.Options{Debug: true, UseCompression: true})
		assert.True(t, opts.Debug)
		assert.True(t, opts.UseCompression)
	})
}
