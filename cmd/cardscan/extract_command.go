package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cardscan/constants"
	"github.com/joseph-ayodele/cardscan/internal/app"
	"github.com/joseph-ayodele/cardscan/internal/extract"
	"github.com/joseph-ayodele/cardscan/internal/ocr"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "extract <front-image> [back-image]",
		Short: "Read the contact details off a card image",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			for _, p := range args {
				if !constants.IsAllowedExt(filepath.Ext(p)) {
					return fmt.Errorf("%s: unsupported image type", p)
				}
			}
			ext, err := app.NewExtractor(cmd.Context(), cfg, nil, ctx.logger())
			if err != nil {
				return err
			}

			var rec extract.ContactRecord
			if len(args) == 2 {
				rec, err = ext.ExtractPair(cmd.Context(), args[0], args[1])
			} else {
				rec, err = ext.Extract(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}

			switch format {
			case "json":
				if err := writeJSON(cmd, rec); err != nil {
					return err
				}
			case "table":
				fmt.Fprintln(cmd.OutOrStdout(), renderKV([][2]string{
					{"Company", rec.Company},
					{"Name", rec.PersonName},
					{"Phones", strings.Join(rec.Phones, ", ")},
					{"Email", rec.Email},
					{"Website", rec.Website},
					{"Address", rec.Address},
				}))
			default:
				return fmt.Errorf("unknown format %q (json or table)", format)
			}
			if extract.IsSentinel(rec) {
				return fmt.Errorf("no backend could read %s", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or table")
	return cmd
}

func newOCRCommand(ctx *commandContext) *cobra.Command {
	var engine string
	cmd := &cobra.Command{
		Use:   "ocr <image>",
		Short: "Print the plain text the OCR engine finds on an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger()
			if engine == "" {
				engine = cfg.OCR.Engine
			}
			if engine == ocr.EngineNone {
				return fmt.Errorf("ocr engine is disabled")
			}
			eng, err := ocr.New(ocr.Config{
				Engine:        engine,
				SpaceAPIKey:   cfg.OCR.SpaceAPIKey,
				SpaceURL:      cfg.OCR.SpaceURL,
				Timeout:       cfg.OCR.Timeout,
				Tesseract:     cfg.OCR.Tesseract,
				TessdataDir:   cfg.OCR.TessdataDir,
				HeicConverter: cfg.OCR.HeicConverter,
			}, logger)
			if err != nil {
				return err
			}

			path, cleanup, err := ocr.NewHEICConverter(cfg.OCR.HeicConverter, nil, logger).Prepare(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cleanup != nil {
				defer cleanup()
			}
			image, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			res, err := eng.Recognize(cmd.Context(), image, constants.MimeForExt(filepath.Ext(path)))
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				logger.Warn("ocr warning", "method", res.Method, "warning", w)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ocr.Normalize(res.Text))
			return nil
		},
	}
	cmd.Flags().StringVar(&engine, "engine", "", "ocrspace or tesseract (default from config)")
	return cmd
}
