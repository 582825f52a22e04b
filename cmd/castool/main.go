// This tool converts cassette saves between raw program bytes, cas block
// images and WAV or AIFF audio.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/cwbudde/cassette"
	"github.com/cwbudde/cassette/block"
	"github.com/cwbudde/cassette/internal/cliconfig"
	"github.com/cwbudde/cassette/tapeerr"
)

// formats are the representations convert and info accept.
var formats = []string{"bin", "cas", "cjr", "wav", "aiff"}

var exampleUsage = strings.TrimSpace(`
  castool convert --platform jr200 --from bin --to wav --name HELLO --load 0x1000 hello.bin hello.wav
  castool convert --platform fm7 --from wav --to cas capture.wav game.cas
  castool info --platform pc8001 --from cas --output json game.cas
`)

var errMissingPath = errors.New("missing path argument")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "castool:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
	errOut  io.Writer
}

func run(args []string, out, errOut io.Writer) error {
	root := newRootCmd(&app{cfg: cliconfig.DefaultConfig(), errOut: errOut})
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	return root.Execute()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "castool",
		Short:         "Convert cassette tape saves of 8-bit home computers",
		Example:       exampleUsage,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgPath, "config", "", "path to config file (default: $HOME/.castool/config.toml)")
	f.StringVarP(&a.cfg.Platform, "platform", "p", a.cfg.Platform, "platform: "+strings.Join(cassette.DefaultRegistry().Names(), ", "))
	f.BoolVarP(&a.cfg.Verbose, "verbose", "v", a.cfg.Verbose, "log decoder details to stderr")

	root.AddCommand(newConvertCmd(a), newInfoCmd(a), newPlatformsCmd())

	return root
}

// configure loads the config file and environment, then validates. Flags the
// user set win over both.
func (a *app) configure(cmd *cobra.Command) error {
	if cmd.Name() == "platforms" {
		return nil
	}

	cfgFile := a.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := cliconfig.ApplyFileConfig(&a.cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := cliconfig.ApplyEnvConfig(&a.cfg, changed); err != nil {
		return err
	}

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	a.log = cliconfig.Logger(a.errOut, a.cfg.Verbose)
	a.log.Debug().Interface("config", a.cfg).Msg("configuration")

	return nil
}

func (a *app) codec() *cassette.Codec {
	return cassette.New(a.cfg.CodecOptions(a.log))
}

func checkFormat(kind, format string) error {
	for _, f := range formats {
		if f == format {
			return nil
		}
	}

	return tapeerr.Unsupported("castool", "unknown %s format %q, want one of %s", kind, format, strings.Join(formats, ", "))
}

func newConvertCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a save from one representation to another",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return errMissingPath
			}

			if err := checkFormat("input", from); err != nil {
				return err
			}

			if err := checkFormat("output", to); err != nil {
				return err
			}

			c := a.codec()

			blocks, err := a.readBlocks(c, from, args[0])
			if err != nil {
				return err
			}

			if err := a.writeBlocks(c, to, args[1], blocks); err != nil {
				return err
			}

			a.log.Info().Str("platform", a.cfg.Platform).Int("blocks", len(blocks)).Str("output", args[1]).Msg("converted")

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "input format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVar(&to, "to", "", "output format: "+strings.Join(formats, ", "))
	a.blockFlags(cmd.Flags())
	a.audioFlags(cmd.Flags())

	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "info <input>",
		Short: "List the file metadata and blocks of a save",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errMissingPath
			}

			if err := checkFormat("input", from); err != nil {
				return err
			}

			c := a.codec()

			blocks, err := a.readBlocks(c, from, args[0])
			if err != nil {
				return err
			}

			f, err := c.Describe(a.cfg.Platform, blocks)
			if err != nil {
				return err
			}

			return output(cmd.OutOrStdout(), f, a.cfg.Output)
		},
	}

	cmd.Flags().StringVar(&from, "from", "cas", "input format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVarP(&a.cfg.Output, "output", "o", a.cfg.Output, "output format: yaml or json")
	a.blockFlags(cmd.Flags())
	a.audioFlags(cmd.Flags())

	return cmd
}

func newPlatformsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platforms",
		Short: "List the supported platforms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range cassette.DefaultRegistry().Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}
}

func (a *app) blockFlags(f *pflag.FlagSet) {
	f.StringVar(&a.cfg.Name, "name", a.cfg.Name, "file name stored in the header block")
	f.StringVar(&a.cfg.Type, "type", a.cfg.Type, "file type: binary, basic or data")
	f.StringVar(&a.cfg.LoadAddr, "load", a.cfg.LoadAddr, "load address of binary files")
	f.StringVar(&a.cfg.ExecAddr, "exec", a.cfg.ExecAddr, "execution address of binary files")
	f.IntVar(&a.cfg.Baud, "baud", a.cfg.Baud, "data rate on platforms offering more than one (0 = default)")
	f.BoolVar(&a.cfg.ASCII, "ascii", a.cfg.ASCII, "mark FM-7 files as ASCII text")
}

func (a *app) audioFlags(f *pflag.FlagSet) {
	f.IntVar(&a.cfg.SampleRate, "rate", a.cfg.SampleRate, "sample rate of synthesized audio")
	f.IntVar(&a.cfg.Amplitude, "amplitude", a.cfg.Amplitude, "peak deviation of the square wave from 128")
	f.DurationVar(&a.cfg.Silence, "silence", a.cfg.Silence, "silence before and after the signal")
	f.IntVar(&a.cfg.AnalysisRate, "analysis-rate", a.cfg.AnalysisRate, "resample captures to this rate before decoding (0 = off)")
}

func (a *app) readBlocks(c *cassette.Codec, from, path string) ([]block.Block, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch from {
	case "bin":
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}

		return c.BlocksFromBin(a.cfg.Platform, data, a.cfg.BlockOptions())
	case "cas", "cjr": // cjr is the JR-200 name of a cas image
		return c.BlocksFromCas(a.cfg.Platform, file)
	case "wav":
		return c.BlocksFromWav(a.cfg.Platform, file)
	default:
		return c.BlocksFromAiff(a.cfg.Platform, file)
	}
}

// writeBlocks creates path and encodes blocks into it. The file is removed
// again when encoding or closing fails.
func (a *app) writeBlocks(c *cassette.Codec, to, path string, blocks []block.Block) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}

		if err != nil {
			os.Remove(path)
		}
	}()

	return a.encode(c, to, file, blocks)
}

func (a *app) encode(c *cassette.Codec, to string, file *os.File, blocks []block.Block) error {
	switch to {
	case "bin":
		data, err := c.BinFromBlocks(a.cfg.Platform, blocks)
		if err != nil {
			return err
		}

		_, err = file.Write(data)

		return err
	case "cas", "cjr":
		return c.CasFromBlocks(a.cfg.Platform, blocks, file)
	case "wav":
		return c.WavFromBlocks(a.cfg.Platform, blocks, file)
	default:
		return c.AiffFromBlocks(a.cfg.Platform, blocks, file)
	}
}

func output(w io.Writer, f block.File, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(f)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}

	_, err = w.Write(data)

	return err
}
