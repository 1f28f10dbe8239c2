package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/cardscan/internal/vcf"
)

// contactJSON is the input shape of `cardscan vcf`.
type contactJSON struct {
	Name    string   `json:"name"`
	Company string   `json:"company"`
	Phones  []string `json:"phones"`
	Email   string   `json:"email"`
	Address string   `json:"address"`
	Note    string   `json:"note"`
}

func newVCFCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "vcf [contacts.json]",
		Short: "Convert a JSON array of contacts to vCard 3.0 (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			text, err := contactsToVCF(r)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), text)
				return err
			}
			return os.WriteFile(out, []byte(text), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func contactsToVCF(r io.Reader) (string, error) {
	var in []contactJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return "", fmt.Errorf("decode contacts: %w", err)
	}
	contacts := make([]vcf.Contact, 0, len(in))
	for _, c := range in {
		contacts = append(contacts, vcf.Contact{
			Name:    c.Name,
			Company: c.Company,
			Phones:  c.Phones,
			Email:   c.Email,
			Address: c.Address,
			Note:    c.Note,
		})
	}
	return vcf.Serialize(contacts), nil
}
