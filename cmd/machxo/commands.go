package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/moffa90/go-machxo/bitstream"
	"github.com/moffa90/go-machxo/isp"
	"github.com/moffa90/go-machxo/protocol"
)

func newIDCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Read the device ID and user code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(func(ctx context.Context, prog *isp.Programmer) error {
				id, err := prog.ReadDeviceID(ctx)
				if err != nil {
					return err
				}
				code, err := prog.ReadUserCode(ctx)
				if err != nil {
					return err
				}
				printf(cmd, "device id: %s\nuser code: 0x%08X\n", id, code)
				return nil
			})
		},
	}
}

func newStatusCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Read the status register and busy flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(func(ctx context.Context, prog *isp.Programmer) error {
				st, err := prog.ReadStatus(ctx)
				if err != nil {
					return err
				}
				busy, err := prog.CheckBusy(ctx)
				if err != nil {
					return err
				}
				printf(cmd, "status: %s\nbusy: %t\n", st, busy)
				return nil
			})
		},
	}
}

func newFeatureRowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "feature-row",
		Short: "Read the feature row and feature bits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(func(ctx context.Context, prog *isp.Programmer) error {
				row, err := prog.ReadFeatureRow(ctx)
				if err != nil {
					return err
				}
				bits, err := prog.ReadFeatureBits(ctx)
				if err != nil {
					return err
				}
				printf(cmd, "feature row: %s\nfeature bits: 0x%04X\n", protocol.FormatBytes(row[:]), bits)
				return nil
			})
		},
	}
}

func newEraseCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "erase [regions...]",
		Short: "Erase flash regions (sram, feature-row, config-flash, ufm)",
		Long: `Enter offline configuration mode and erase the given regions.
Without arguments the profile erase list is used, or the configuration flash.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			regions := o.erase
			if len(args) > 0 {
				regions = args
			}
			mask, err := eraseMask(regions)
			if err != nil {
				return err
			}

			return o.run(func(ctx context.Context, prog *isp.Programmer) error {
				if err := prog.EnableConfigOffline(ctx); err != nil {
					return err
				}
				if err := prog.Erase(ctx, mask); err != nil {
					return err
				}
				polls, err := prog.WaitBusy(ctx)
				if err != nil {
					return err
				}
				printf(cmd, "erased %s (%d polls)\n", mask, polls)
				return nil
			})
		},
	}
}

func newProgramCmd(o *options) *cobra.Command {
	var (
		format    string
		noRefresh bool
		strict    bool
	)

	cmd := &cobra.Command{
		Use:   "program FILE",
		Short: "Erase and program a JED or HEX bitstream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var f bitstream.Format
			var err error
			if format != "" {
				f, err = bitstream.ParseFormat(format)
			} else {
				f, err = bitstream.DetectFormat(path)
			}
			if err != nil {
				return err
			}

			mask, err := eraseMask(o.erase)
			if err != nil {
				return err
			}

			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer file.Close()

			return o.run(func(ctx context.Context, prog *isp.Programmer) error {
				res, err := prog.Program(ctx, file, f)
				if err != nil {
					return err
				}
				printf(cmd, "wrote %d pages from %s in %s\n", res.Pages, path, res.Elapsed.Round(time.Millisecond))
				if res.MalformedLines+res.MalformedBlocks > 0 {
					printf(cmd, "skipped %d malformed lines and %d malformed blocks\n", res.MalformedLines, res.MalformedBlocks)
				}
				printf(cmd, "status: %s\n", res.Status)
				if res.Status.Fail() {
					return fmt.Errorf("device reports failure: %s", res.Status.ErrorCode())
				}
				return nil
			},
				isp.WithEraseMask(mask),
				isp.WithTransparentMode(o.transparent),
				isp.WithRefresh(!noRefresh),
				isp.WithStrictDecoding(strict),
				isp.WithProgressCallback(progressPrinter(cmd)),
			)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format, jed or hex (default: from extension)")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Do not refresh after programming")
	cmd.Flags().BoolVar(&strict, "strict", false, "Abort on the first malformed line or block")
	cmd.Flags().BoolVar(&o.transparent, "transparent", false, "Program in transparent mode, keeping user logic running")
	cmd.Flags().StringSliceVar(&o.erase, "erase", nil, "Regions to erase before programming (default: config-flash)")
	return cmd
}

// progressPrinter reports phase changes on stderr and page counts at -v=1.
func progressPrinter(cmd *cobra.Command) isp.ProgressCallback {
	last := ""
	return func(p isp.Progress) {
		if p.Phase != last {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %d pages, %s\n", p.Phase, p.PagesWritten, p.ElapsedTime.Round(time.Millisecond))
			last = p.Phase
			return
		}
		if glog.V(1) && p.PagesWritten%256 == 0 {
			glog.Infof("%d pages written (line %d)", p.PagesWritten, p.Line)
		}
	}
}

func newRefreshCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Reload the configuration from flash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(func(ctx context.Context, prog *isp.Programmer) error {
				return prog.Refresh(ctx)
			})
		},
	}
}

func newWakeupCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "wakeup",
		Short: "Send the wake-up no-op frame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(func(ctx context.Context, prog *isp.Programmer) error {
				return prog.Wakeup(ctx)
			})
		},
	}
}
