package cmd

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/ghodss/yaml"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/pishow/pkg/config"
	"github.com/sidkik/pishow/pkg/errors"
	"github.com/sidkik/pishow/pkg/remote/local"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "pishow.yaml")

	fileConfig := config.DefaultApp()
	fileConfig.LocalDir = "/home/pi/slides"
	fileConfig.RemoteDir = "/slides"
	fileConfig.Remote = config.Remote{
		Type:         config.RemoteS3,
		Bucket:       "photos",
		Region:       "us-east-1",
		PollInterval: config.Duration{Duration: time.Minute},
		PollTimeout:  config.Duration{Duration: 10 * time.Minute},
		Retries:      3,
	}
	fileBytes, err := yaml.Marshal(fileConfig)
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(configPath, fileBytes, 0600))

	tests := []struct {
		name     string
		flags    []string
		args     []string
		exp      func(*config.App)
		expError error
	}{
		{
			name: "FileOnly",
			exp:  func(*config.App) {},
		},
		{
			name:  "FlagsOverrideFile",
			flags: []string{"--bucket", "kiosk", "--poll-interval", "5s", "--notify", "a@example.com,b@example.com", "--smtp-server", "smtp.example.com"},
			exp: func(cfg *config.App) {
				cfg.Remote.Bucket = "kiosk"
				cfg.Remote.PollInterval = config.Duration{Duration: 5 * time.Second}
				cfg.SMTP.Server = "smtp.example.com"
				cfg.SMTP.Recipients = []string{"a@example.com", "b@example.com"}
			},
		},
		{
			name: "ArgsOverrideFile",
			args: []string{"/tmp/slides", "lobby/"},
			exp: func(cfg *config.App) {
				cfg.LocalDir = "/tmp/slides"
				cfg.RemoteDir = "/lobby"
			},
		},
		{
			name:  "ViewerCommand",
			flags: []string{"--viewer-command", "fbi,-a,-t,{delay},{dir}"},
			exp: func(cfg *config.App) {
				cfg.Viewer.Command = []string{"fbi", "-a", "-t", "{delay}", "{dir}"}
			},
		},
		{
			name:     "Invalid",
			flags:    []string{"--remote", "local"},
			expError: errors.WithContext(errors.MissingFieldError{Field: "remote.root"}, "invalid config"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			var flags flagOverrides
			cmd := &cobra.Command{}
			flags.register(cmd)
			require.NoError(t, cmd.ParseFlags(test.flags))

			cfg, err := loadConfig(configPath, flags, cmd, test.args)
			if test.expError != nil {
				assert.Equal(t, test.expError, err)
				return
			}

			require.NoError(t, err)
			exp := fileConfig
			exp.Version = config.SupportedAppConfigVersion
			test.exp(&exp)
			assert.Equal(t, exp, cfg)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	var flags flagOverrides
	cmd := &cobra.Command{}
	flags.register(cmd)

	_, err := loadConfig(path, flags, cmd, []string{"/tmp/slides", "/slides"})
	var friendly errors.FriendlyError
	assert.True(t, errors.As(err, &friendly))
}

func TestNewRemoteClient(t *testing.T) {
	client, err := newRemoteClient(context.Background(), config.Remote{
		Type: config.RemoteLocal,
		Root: "/dropbox",
	})
	require.NoError(t, err)
	assert.IsType(t, &local.Client{}, client)

	_, err = newRemoteClient(context.Background(), config.Remote{Type: "ftp"})
	assert.Error(t, err)
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 3, retryBackoff(3).Steps)
	assert.Equal(t, 1, retryBackoff(0).Steps)
}

func TestVersionFlag(t *testing.T) {
	cmd := New()
	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotEmpty(t, cmd.Version)
}
