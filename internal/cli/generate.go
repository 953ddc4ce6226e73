package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/reelscript/internal/batch"
	"github.com/rcliao/reelscript/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "generate [topic]",
		Short: "Generate reel scripts for a topic",
		Long: "Generate a Telugu-English reel script for a topic. Scripts come from the cache when\n" +
			"a batch for the topic and genre exists, otherwise from the LLM, falling back to\n" +
			"rule-based templates. Use --next to print further scripts from the batch.",
		Args: cobra.MinimumNArgs(1),
		Run:  runGenerate,
	}

	cmd.Flags().StringP("genre", "g", "", "Genre: Comedy, Cinematic, Romantic, Savage (default from config)")
	cmd.Flags().IntP("next", "n", 0, "Print N more scripts after the first")
	cmd.Flags().Bool("json", false, "Print scripts as JSON")
	cmd.Flags().BoolP("interactive", "i", false, "Press enter for the next script (terminal only)")

	RootCmd.AddCommand(cmd)
}

type generatedOutput struct {
	Session string                  `json:"session"`
	Topic   string                  `json:"topic"`
	Genre   string                  `json:"genre"`
	Source  batch.Source            `json:"source"`
	Scripts []model.GeneratedScript `json:"scripts"`
}

func runGenerate(cmd *cobra.Command, args []string) {
	if err := generate(cmd, args); err != nil {
		exitErr("generate", err)
	}
}

// generate never exits the process; the deferred Close persists usage on
// every return path.
func generate(cmd *cobra.Command, args []string) error {
	genre, _ := cmd.Flags().GetString("genre")
	next, _ := cmd.Flags().GetInt("next")
	asJSON, _ := cmd.Flags().GetBool("json")
	interactive, _ := cmd.Flags().GetBool("interactive")
	topic := joinArgs(args)
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer a.Close(ctx)

	req := batch.Request{Topic: topic, Genre: genre}
	session, err := a.orch.NewSession(req)
	if err != nil {
		return err
	}
	key, _ := a.orch.Key(req)

	if interactive && isTerminal(cmd.OutOrStdout()) && isTerminal(os.Stdin) && !asJSON {
		return runInteractive(cmd, session, os.Stdin)
	}

	out := generatedOutput{Session: session.ID, Topic: topic, Genre: key.Filter}
	for i := 0; i <= next; i++ {
		s, err := session.Next(ctx)
		if err != nil {
			return err
		}
		out.Scripts = append(out.Scripts, s)
	}
	out.Source = session.Source()

	if asJSON || jsonOutput(cmd) {
		printJSON(cmd, out)
		return nil
	}
	w := cmd.OutOrStdout()
	for i, s := range out.Scripts {
		if i > 0 {
			fmt.Fprintln(w)
		}
		writeScript(w, i+1, s)
	}
	fmt.Fprintf(w, "\n(%s, %d more in batch)\n", out.Source, session.Remaining())
	return nil
}

func runInteractive(cmd *cobra.Command, session *batch.Session, in io.Reader) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	reader := bufio.NewReader(in)
	for n := 1; ; n++ {
		s, err := session.Next(ctx)
		if err != nil {
			return err
		}
		if n > 1 {
			fmt.Fprintln(w)
		}
		writeScript(w, n, s)
		hint := "new batch"
		if r := session.Remaining(); r > 0 {
			hint = fmt.Sprintf("%d more", r)
		}
		fmt.Fprintf(w, "\n[enter] next (%s), q to quit: ", hint)
		line, err := reader.ReadString('\n')
		if err != nil || strings.EqualFold(strings.TrimSpace(line), "q") {
			fmt.Fprintln(w)
			return nil
		}
	}
}

func writeScript(w io.Writer, n int, s model.GeneratedScript) {
	fmt.Fprintf(w, "Script %d", n)
	if s.UsedDataset {
		fmt.Fprint(w, " (dataset)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  HOOK:      %s\n", s.Hook)
	fmt.Fprintf(w, "  CONTEXT:   %s\n", s.Context)
	fmt.Fprintf(w, "  PUNCHLINE: %s\n", s.Punchline)
	fmt.Fprintf(w, "  CAPTION:   %s\n", strings.ReplaceAll(s.Caption, "\n", "\n             "))
	if s.Error != "" {
		fmt.Fprintf(w, "  ERROR:     %s\n", s.Error)
	}
}
