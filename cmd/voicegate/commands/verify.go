package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/voicepay/voicegate/pkg/cli"
)

var (
	flagServer    string
	flagPrincipal string
	flagSignature string
)

var styles = cli.NewStyles(cli.DefaultTheme)

var verifyCmd = &cobra.Command{
	Use:   "verify [audio files...]",
	Short: "Run a verification session against a server",
	Long: `Start a verification session and submit recorded audio files,
one per challenge prompt, in order.

Example:
  voicegate verify --principal alice one.wav two.wav three.wav
  voicegate verify --principal alice --signature sig.wav`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&flagServer, "server", "http://localhost:8080", "server base URL")
	verifyCmd.Flags().StringVarP(&flagPrincipal, "principal", "p", "", "principal identifier (required)")
	verifyCmd.Flags().StringVar(&flagSignature, "signature", "", "audio file to submit as a voice signature")
	verifyCmd.MarkFlagRequired("principal")
	rootCmd.AddCommand(verifyCmd)
}

type verifyResult struct {
	Outcome    string `json:"outcome"`
	Retryable  bool   `json:"retryable"`
	Message    string `json:"message"`
	NextPrompt string `json:"next_prompt"`
	Spoof      struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"spoof"`
	Error string `json:"error"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	if flagSignature != "" {
		return submitSignature(flagSignature)
	}
	if len(args) == 0 {
		return fmt.Errorf("no audio files given (or use --signature)")
	}

	prompts, err := startVerifySession()
	if err != nil {
		return err
	}
	fmt.Println(styles.Title.Render("Session started for " + flagPrincipal))
	for i, p := range prompts {
		fmt.Printf("  %d. %s\n", i+1, styles.Prompt.Render(p))
	}
	fmt.Println()

	for _, path := range args {
		fmt.Printf("%s %s\n", styles.Dim.Render("submitting"), filepath.Base(path))
		res, err := postAudio("/v1/attempts", path)
		if err != nil {
			return err
		}
		renderResult(res)
		switch res.Outcome {
		case "success":
			fmt.Println(styles.OK.Render("✔ verification complete"))
			return nil
		case "spoof_detected":
			return fmt.Errorf("session destroyed")
		}
	}
	return nil
}

func submitSignature(path string) error {
	fmt.Printf("%s %s\n", styles.Dim.Render("submitting signature"), filepath.Base(path))
	res, err := postAudio("/v1/signatures", path)
	if err != nil {
		return err
	}
	renderResult(res)
	if res.Outcome != "success" {
		return fmt.Errorf("signature not created")
	}
	fmt.Println(styles.OK.Render("✔ signature created"))
	return nil
}

func renderResult(res *verifyResult) {
	line := fmt.Sprintf("%s  spoof=%s(%.2f)", res.Outcome, res.Spoof.Label, res.Spoof.Confidence)
	switch {
	case res.Outcome == "success" || res.Outcome == "next_prompt":
		fmt.Println("  " + styles.OK.Render(line))
	case res.Retryable:
		fmt.Println("  " + styles.Warn.Render(line))
	default:
		fmt.Println("  " + styles.Fail.Render(line))
	}
	if res.Message != "" {
		fmt.Println("  " + styles.Dim.Render(res.Message))
	}
}

func startVerifySession() ([]string, error) {
	body, _ := json.Marshal(map[string]string{"principal": flagPrincipal})
	resp, err := http.Post(flagServer+"/v1/sessions", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Prompts []string `json:"prompts"`
		Error   string   `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("start session: %s", out.Error)
	}
	return out.Prompts, nil
}

func postAudio(path, file string) (*verifyResult, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("principal", flagPrincipal); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("audio", filepath.Base(file))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	mw.Close()

	resp, err := http.Post(flagServer+path, mw.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var res verifyResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%s", res.Error)
	}
	return &res, nil
}
