package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/types"
	"github.com/cowalsky-lab/cowalsky/backend/internal/cli/ui"
)

var scanOpts struct {
	persona string
	penguin bool
}

var qrOpts struct {
	size int
	out  string
}

// ocrCmd extracts text from an image
var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Read the text in an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readImage(cmd, args[0])
		if err != nil {
			return err
		}
		apiClient, err := newClient(cmd)
		if err != nil {
			return err
		}
		result, err := apiClient.ExtractText(cmd.Context(), filepath.Base(args[0]), data)
		if err != nil {
			return reportError(cmd, err)
		}
		for _, w := range result.Warnings {
			ui.PrintWarning(cmd.ErrOrStderr(), "%s", w)
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Text)
		return nil
	},
}

// exifCmd prints photo metadata
var exifCmd = &cobra.Command{
	Use:   "exif <file>",
	Short: "Show camera, time and GPS metadata of a photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readImage(cmd, args[0])
		if err != nil {
			return err
		}
		apiClient, err := newClient(cmd)
		if err != nil {
			return err
		}
		info, err := apiClient.ReadExif(cmd.Context(), filepath.Base(args[0]), data)
		if err != nil {
			return reportError(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderExif(filepath.Base(args[0]), info))
		return nil
	},
}

// scanCmd explains port scan output read from a file or stdin
var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Explain network scan output",
	Example: `  $ nmap -sV 10.0.0.5 | cowalsky scan
  $ cowalsky scan results.txt --penguin=false`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

// geoCmd looks up an IP address
var geoCmd = &cobra.Command{
	Use:   "geo [ip]",
	Short: "Locate an IP address (your own when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiClient, err := newClient(cmd)
		if err != nil {
			return err
		}
		ip := ""
		if len(args) == 1 {
			ip = args[0]
		}
		loc, err := apiClient.Locate(cmd.Context(), ip)
		if err != nil {
			return reportError(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderLocation(loc))
		return nil
	},
}

// qrCmd renders a QR code PNG
var qrCmd = &cobra.Command{
	Use:     "qr <content>",
	Short:   "Generate a QR code",
	Example: `  $ cowalsky qr "https://example.com" --size 512 -o link.png`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		apiClient, err := newClient(cmd)
		if err != nil {
			return err
		}
		png, err := apiClient.QRCode(cmd.Context(), strings.Join(args, " "), qrOpts.size)
		if err != nil {
			return reportError(cmd, err)
		}
		if err := os.WriteFile(qrOpts.out, png, 0o644); err != nil {
			ui.PrintError(cmd.ErrOrStderr(), "failed to save QR code: %v", err)
			return err
		}
		ui.PrintSuccess(cmd.OutOrStdout(), "saved %s", qrOpts.out)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanOpts.persona, "persona", "p", "", "persona id")
	scanCmd.Flags().BoolVar(&scanOpts.penguin, "penguin", true, "append the penguin sign-off")

	qrCmd.Flags().IntVar(&qrOpts.size, "size", 256, "image size in pixels")
	qrCmd.Flags().StringVarP(&qrOpts.out, "output", "o", "qrcode.png", "where to save the PNG")
}

func runScan(cmd *cobra.Command, args []string) error {
	var (
		raw []byte
		err error
	)
	if len(args) == 1 && args[0] != "-" {
		raw, err = os.ReadFile(args[0])
	} else {
		raw, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		ui.PrintError(cmd.ErrOrStderr(), "failed to read scan output: %v", err)
		return err
	}

	apiClient, err := newClient(cmd)
	if err != nil {
		return err
	}

	req := types.ScanRequest{Text: string(raw), PersonaID: scanOpts.persona}
	if cmd.Flags().Changed("penguin") {
		req.PenguinMode = &scanOpts.penguin
	}
	result, err := apiClient.ExplainScan(cmd.Context(), req)
	if err != nil {
		return reportError(cmd, err)
	}
	for _, w := range result.Warnings {
		ui.PrintWarning(cmd.ErrOrStderr(), "%s", w)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return nil
}
