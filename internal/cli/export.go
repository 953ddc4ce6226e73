package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/model"
	"github.com/rcliao/reelscript/internal/screenplay"
)

func init() {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a script as a screenplay",
		Long: "Convert a generated script (JSON on stdin or --file, as printed by generate --json)\n" +
			"into screenplay text. With --out-dir the text is written to a .celtx file.",
		Run: runExport,
	}

	cmd.Flags().String("file", "", "Read the script from file instead of stdin")
	cmd.Flags().IntP("index", "i", 0, "Script index when the input holds several")
	cmd.Flags().String("topic", "", "Topic used for the file name (default: script title)")
	cmd.Flags().StringP("out-dir", "o", "", "Write to a file in this directory")

	RootCmd.AddCommand(cmd)
}

func runExport(cmd *cobra.Command, args []string) {
	file, _ := cmd.Flags().GetString("file")
	index, _ := cmd.Flags().GetInt("index")
	topic, _ := cmd.Flags().GetString("topic")
	outDir, _ := cmd.Flags().GetString("out-dir")

	data, err := readInput(file, cmd.InOrStdin())
	if err != nil {
		exitErr("read input", err)
	}
	script, err := decodeScript(data, index)
	if err != nil {
		exitErr("export", err)
	}

	text := screenplay.Format(script)
	if outDir == "" {
		fmt.Fprint(cmd.OutOrStdout(), text)
		return
	}

	if topic == "" {
		topic = screenplay.Title(script.Caption)
	}
	path := filepath.Join(outDir, screenplay.FileName(topic, time.Now()))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		exitErr("export", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		exitErr("export", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
}

// decodeScript accepts a single script, an array of scripts, or generate's
// JSON output.
func decodeScript(data []byte, index int) (model.GeneratedScript, error) {
	var wrapper struct {
		Scripts []model.GeneratedScript `json:"scripts"`
	}
	var list []model.GeneratedScript
	var single model.GeneratedScript

	switch {
	case json.Unmarshal(data, &list) == nil:
	case json.Unmarshal(data, &wrapper) == nil && len(wrapper.Scripts) > 0:
		list = wrapper.Scripts
	case json.Unmarshal(data, &single) == nil:
		list = []model.GeneratedScript{single}
	default:
		return model.GeneratedScript{}, fmt.Errorf("%w: input is not a script JSON", model.ErrValidation)
	}
	if index < 0 || index >= len(list) {
		return model.GeneratedScript{}, fmt.Errorf("%w: index %d out of range (%d scripts)", model.ErrValidation, index, len(list))
	}
	return list[index], nil
}
