package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inforens/nori/internal/config"
	"github.com/inforens/nori/internal/prompt"
	"github.com/inforens/nori/internal/storage"
	"github.com/inforens/nori/internal/workflow"
)

// --- ask / chat ---

type askResult struct {
	Answer    string   `json:"answer"`
	Links     []string `json:"links"`
	MessageID string   `json:"messageId"`
	LatencyMS int64    `json:"latencyMs"`
}

func ask(ctx context.Context, c *apiClient, sessionID, question string) (askResult, error) {
	resp, err := c.post(ctx, "/api/ask", map[string]string{
		"question":  question,
		"sessionId": sessionID,
	})
	if err != nil {
		return askResult{}, err
	}
	var res askResult
	err = decodeJSON(resp, &res)
	return res, err
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		session, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		res, err := ask(cmd.Context(), client, session, strings.Join(args, " "))
		if err != nil {
			return err
		}
		printAnswer(cmd.OutOrStdout(), res)
		return nil
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation. Each chat gets its own session, so
follow-up questions see earlier answers.

Type /new to start a fresh session and /quit (or Ctrl-D) to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

// runChat reads questions line by line until EOF or /quit.
func runChat(ctx context.Context, c *apiClient, in io.Reader, out io.Writer) error {
	session := uuid.NewString()
	fmt.Fprintln(out, colorize(colorDim, "session "+session+" (/new for a fresh one, /quit to exit)"))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, colorize(colorBold, "you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			session = uuid.NewString()
			fmt.Fprintln(out, colorize(colorDim, "session "+session))
			continue
		}

		res, err := ask(ctx, c, session, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(out, colorize(colorRed, err.Error()))
			continue
		}
		printAnswer(out, res)
		fmt.Fprintln(out)
	}
}

func init() {
	askCmd.Flags().String("session", "", "session id to continue a conversation")
}

// --- feedback ---

var feedbackCmd = &cobra.Command{
	Use:   "feedback <message-id>",
	Short: "Rate an answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		up, _ := cmd.Flags().GetBool("up")
		down, _ := cmd.Flags().GetBool("down")
		note, _ := cmd.Flags().GetString("note")
		if up == down && note == "" {
			return errors.New("pass exactly one of --up or --down, or a --note")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/feedback", map[string]any{
			"messageId":  args[0],
			"thumbsUp":   up,
			"thumbsDown": down,
			"feedback":   note,
		})
		if err != nil {
			return err
		}
		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Feedback recorded for %s", args[0])
		return nil
	},
}

func init() {
	feedbackCmd.Flags().Bool("up", false, "thumbs up")
	feedbackCmd.Flags().Bool("down", false, "thumbs down")
	feedbackCmd.Flags().String("note", "", "free-text feedback")
}

// --- queries ---

var queriesCmd = &cobra.Command{
	Use:   "queries",
	Short: "Inspect the question log",
}

var queriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		queries, err := listQueries(cmd.Context(), client, limit, offset)
		if err != nil {
			return err
		}
		printQueries(cmd.OutOrStdout(), queries)
		return nil
	},
}

var queriesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one logged question as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/api/queries/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var q storage.Query
		if err := decodeJSON(resp, &q); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), q)
	},
}

func listQueries(ctx context.Context, c *apiClient, limit, offset int) ([]storage.Query, error) {
	v := url.Values{}
	v.Set("limit", fmt.Sprint(limit))
	v.Set("offset", fmt.Sprint(offset))
	resp, err := c.get(ctx, "/api/queries?"+v.Encode())
	if err != nil {
		return nil, err
	}
	var list struct {
		Queries []storage.Query `json:"queries"`
	}
	if err := decodeJSON(resp, &list); err != nil {
		return nil, err
	}
	return list.Queries, nil
}

func printQueries(w io.Writer, queries []storage.Query) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tOK\tRATING\tQUESTION")
	for _, q := range queries {
		rating := ""
		switch {
		case q.ThumbsUp:
			rating = "+"
		case q.ThumbsDown:
			rating = "-"
		}
		ok := "yes"
		if !q.Success {
			ok = "no"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", q.ID, q.CreatedAt.Local().Format("2006-01-02 15:04"), ok, rating, ellipsize(q.Question, 60))
	}
	tw.Flush()
}

func ellipsize(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	queriesListCmd.Flags().Int("limit", 20, "maximum number of questions")
	queriesListCmd.Flags().Int("offset", 0, "number of questions to skip")
	queriesCmd.AddCommand(queriesListCmd, queriesShowCmd)
}

// --- scholarships ---

var scholarshipsCmd = &cobra.Command{
	Use:   "scholarships",
	Short: "Find scholarships for a student profile",
	Long: `Find scholarships for a student profile.

Example:
  nori scholarships --citizenship India --country UK --level Masters --field "Data Science"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		sp := prompt.ScholarshipProfile{}
		sp.Citizenship, _ = f.GetString("citizenship")
		sp.PreferredCountry, _ = f.GetString("country")
		sp.Level, _ = f.GetString("level")
		sp.Field, _ = f.GetString("field")
		sp.PreferredUniversities, _ = f.GetStringSlice("universities")
		sp.CourseIntake, _ = f.GetString("intake")
		sp.AcademicPerformance, _ = f.GetString("academic-performance")
		asJSON, _ := f.GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/scholarships", sp)
		if err != nil {
			return err
		}
		var res workflow.ScholarshipResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), res.Scholarships)
		}
		printScholarships(cmd.OutOrStdout(), res.Scholarships)
		return nil
	},
}

func printScholarships(w io.Writer, items []workflow.ScholarshipItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No scholarships found.")
		return
	}
	for i, it := range items {
		fmt.Fprintf(w, "%d. %s\n", i+1, colorize(colorBold, it.Name))
		if it.Description != "" {
			fmt.Fprintf(w, "   %s\n", it.Description)
		}
		if it.Deadline != "" {
			fmt.Fprintf(w, "   %s %s\n", colorize(colorDim, "deadline"), it.Deadline)
		}
	}
}

func init() {
	f := scholarshipsCmd.Flags()
	f.String("citizenship", "", "student's citizenship (required)")
	f.String("country", "", "preferred country of study (required)")
	f.String("level", "", "level of study, e.g. Masters (required)")
	f.String("field", "", "field of study (required)")
	f.StringSlice("universities", nil, "preferred universities, comma-separated")
	f.String("intake", "", "course intake, e.g. Sep 2026")
	f.String("academic-performance", "", "grades or GPA")
	f.Bool("json", false, "print the raw JSON list")
}

// --- sop ---

var sopCmd = &cobra.Command{
	Use:   "sop",
	Short: "Draft a statement of purpose",
	Long: `Draft a statement of purpose.

Details come from flags or from a JSON file (--from) using the API field names.
Use --pdf or --docx to also save the statement as a document.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var d prompt.SOPDetails
		if from, _ := f.GetString("from"); from != "" {
			if err := readJSONFile(from, &d); err != nil {
				return err
			}
		}
		setIfChanged(cmd, "name", &d.Name)
		setIfChanged(cmd, "from-country", &d.CountryOfOrigin)
		setIfChanged(cmd, "degree", &d.IntendedDegree)
		setIfChanged(cmd, "country", &d.PreferredCountry)
		setIfChanged(cmd, "field", &d.FieldOfStudy)
		setIfChanged(cmd, "university", &d.PreferredUni)
		setIfChanged(cmd, "tone", &d.Tone)
		if f.Changed("words") {
			d.WordCountTarget, _ = f.GetInt("words")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/sop", d)
		if err != nil {
			return err
		}
		var res workflow.SOPResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res.SOP)
		printStatus("Words", "%d", res.WordCount)

		body := map[string]string{"sop": res.SOP, "name": d.Name}
		return saveDocuments(cmd, client, "/api/sop/download/", body)
	},
}

func init() {
	f := sopCmd.Flags()
	f.String("from", "", "JSON file with SOP details")
	f.String("name", "", "applicant name")
	f.String("from-country", "", "country of origin")
	f.String("degree", "", "intended degree")
	f.String("country", "", "preferred country of study")
	f.String("field", "", "field of study")
	f.String("university", "", "preferred university")
	f.String("tone", "", "tone (default Formal)")
	f.Int("words", 0, "target word count")
	addDocumentFlags(sopCmd)
}

// --- cv ---

var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "Build a structured CV from form data or an uploaded CV",
	Long: `Build a structured CV.

  nori cv --upload resume.pdf --docx cv.docx   structure an existing PDF/DOCX/TXT CV
  nori cv --from form.json --pdf cv.pdf        generate from form data (API field names)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		upload, _ := cmd.Flags().GetString("upload")
		from, _ := cmd.Flags().GetString("from")
		if (upload == "") == (from == "") {
			return errors.New("pass exactly one of --upload or --from")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var cv workflow.CV
		if upload != "" {
			data, err := os.ReadFile(upload)
			if err != nil {
				return fmt.Errorf("reading %s: %w", upload, err)
			}
			resp, err := client.upload(cmd.Context(), "/api/cv/upload", upload, data)
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &cv); err != nil {
				return err
			}
		} else {
			var in workflow.CVInput
			if err := readJSONFile(from, &in); err != nil {
				return err
			}
			resp, err := client.post(cmd.Context(), "/api/cv", in)
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &cv); err != nil {
				return err
			}
		}

		if err := printJSON(cmd.OutOrStdout(), cv); err != nil {
			return err
		}
		return saveDocuments(cmd, client, "/api/cv/download/", cv)
	},
}

func init() {
	cvCmd.Flags().String("upload", "", "existing CV to structure (pdf, docx or txt)")
	cvCmd.Flags().String("from", "", "JSON file with CV form data")
	addDocumentFlags(cvCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all configuration keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE\tENV")
		for _, ki := range config.ShowAll(cfg) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", ki.Key, ki.Value, ki.EnvVar)
		}
		return tw.Flush()
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration key",
	Long:  "Set a configuration key. Valid keys:\n  " + strings.Join(config.ValidKeys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s", args[0])
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration key to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd)
}

// --- helpers ---

func addDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().String("pdf", "", "also save as PDF to this path")
	cmd.Flags().String("docx", "", "also save as DOCX to this path")
}

// saveDocuments renders body through {prefix}{format} for each requested
// output flag.
func saveDocuments(cmd *cobra.Command, c *apiClient, prefix string, body any) error {
	for _, format := range []string{"pdf", "docx"} {
		dst, _ := cmd.Flags().GetString(format)
		if dst == "" {
			continue
		}
		if err := c.download(cmd.Context(), prefix+format, body, dst); err != nil {
			return fmt.Errorf("saving %s: %w", format, err)
		}
		abs, _ := filepath.Abs(dst)
		printSuccess("Saved %s", abs)
	}
	return nil
}

func setIfChanged(cmd *cobra.Command, flag string, dst *string) {
	if cmd.Flags().Changed(flag) {
		*dst, _ = cmd.Flags().GetString(flag)
	}
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
