package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maktabahq/maktaba/internal/model"
	"github.com/maktabahq/maktaba/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI 3.1 specification",
		Long:  "Generate the OpenAPI document for the gateway and management API, covering all three library providers.",
		Example: `  maktaba openapi                  # print to stdout
  maktaba openapi -o openapi.json  # write to a file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runOpenAPI(output string) error {
	doc, err := openapi.Generate(model.AllLibraries())
	if err != nil {
		return fmt.Errorf("generate spec: %w", err)
	}

	raw, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	var buf any
	if err := json.Unmarshal(raw, &buf); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return err
	}
	pretty = append(pretty, '\n')

	if output == "" {
		_, err = os.Stdout.Write(pretty)
		return err
	}

	if err := os.WriteFile(output, pretty, 0644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	fmt.Fprintf(os.Stderr, "Wrote OpenAPI spec to %s\n", output)
	return nil
}
