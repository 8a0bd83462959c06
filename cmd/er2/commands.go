package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/strongdm/er2-go/pkg/er2"
	"github.com/urfave/cli"
)

const (
	configFlagName  = "config"
	strictFlagName  = "strict"
	messageFlagName = "message"
	codeFlagName    = "code"
	fileFlagName    = "file"
	lineFlagName    = "line"
	fatalFlagName   = "fatal"
	sessionFlagName = "session"
)

func configFlag() cli.Flag {
	return cli.StringFlag{
		Name:  configFlagName + ", c",
		Usage: "path to the YAML client configuration (ER2_* variables override it)",
	}
}

func errorFlags() []cli.Flag {
	return []cli.Flag{
		configFlag(),
		cli.StringFlag{
			Name:  messageFlagName + ", m",
			Usage: "error message to report",
		},
		cli.IntFlag{
			Name:  codeFlagName,
			Usage: "numeric error code",
		},
		cli.StringFlag{
			Name:  fileFlagName,
			Usage: "source file the error is attributed to",
		},
		cli.IntFlag{
			Name:  lineFlagName,
			Usage: "source line the error is attributed to",
		},
		cli.BoolFlag{
			Name:  fatalFlagName,
			Usage: "mark the error as fatal",
		},
		cli.StringFlag{
			Name:  sessionFlagName,
			Usage: "correlation id sent as er2_session_id",
		},
	}
}

func requireMessageFlag(c *cli.Context) error {
	if c.String(messageFlagName) == "" {
		return errors.New("must specify a message")
	}
	return nil
}

func checkConfig() cli.Command {
	return cli.Command{
		Name:  "check-config",
		Usage: "validate the collector URL and API token",
		Flags: []cli.Flag{
			configFlag(),
			cli.BoolFlag{
				Name:  strictFlagName,
				Usage: "require https and a long printable token",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := er2.LoadConfigWithEnvOverrides(c.String(configFlagName))
			if err != nil {
				return errors.Wrap(err, "loading configuration")
			}
			if err := cfg.Check(c.Bool(strictFlagName)); err != nil {
				return errors.Wrap(err, "configuration is invalid")
			}
			fmt.Fprintln(c.App.Writer, "Valid!")
			return nil
		},
	}
}

func sendReport() cli.Command {
	return cli.Command{
		Name:   "send",
		Usage:  "send a single error report for this process",
		Flags:  errorFlags(),
		Before: requireMessageFlag,
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			client, err := newClient(c.String(configFlagName))
			if err != nil {
				return err
			}
			defer client.Close()

			ok, err := client.ReportErrors(ctx, sessionID(c), cliSnapshot(), rawErrorFromFlags(c))
			if err != nil {
				return errors.Wrap(err, "building report")
			}
			if !ok {
				return cli.NewExitError("report was not delivered", 1)
			}
			fmt.Fprintln(c.App.Writer, "Delivered.")
			return nil
		},
	}
}

func dumpReport() cli.Command {
	return cli.Command{
		Name:   "dump",
		Usage:  "print the report JSON that send would transmit",
		Flags:  errorFlags(),
		Before: requireMessageFlag,
		Action: func(c *cli.Context) error {
			client, err := newClient(c.String(configFlagName))
			if err != nil {
				return err
			}
			defer client.Close()

			payload := er2.ErrorList{Errors: []er2.RawError{rawErrorFromFlags(c)}}
			report, err := client.Build(context.Background(), sessionID(c), cliSnapshot(), payload)
			if err != nil {
				return errors.Wrap(err, "building report")
			}
			return writeReport(c.App.Writer, report)
		},
	}
}

func newClient(configPath string) (*er2.Client, error) {
	cfg, err := er2.LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading configuration")
	}
	return er2.NewClient(cfg), nil
}

func rawErrorFromFlags(c *cli.Context) er2.RawError {
	return er2.RawError{
		Fatal:   c.Bool(fatalFlagName),
		Code:    c.Int(codeFlagName),
		Message: c.String(messageFlagName),
		File:    c.String(fileFlagName),
		Line:    c.Int(lineFlagName),
	}
}

func sessionID(c *cli.Context) *string {
	if id := c.String(sessionFlagName); id != "" {
		return &id
	}
	return nil
}

func cliSnapshot() *er2.Snapshot {
	return &er2.Snapshot{Environment: er2.ProcessEnvironment()}
}

func writeReport(w io.Writer, report *er2.Report) error {
	if w == nil {
		w = os.Stdout
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "serializing report")
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
