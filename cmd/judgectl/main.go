// Command judgectl submits one submission to a running judge daemon and
// follows its progress until it completes.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type judgeRequest struct {
	ToolchainName string `json:"toolchain_name"`
	ProblemID     string `json:"problem_id"`
	RunSourceB64  string `json:"run_source"`
}

type liveStatus struct {
	Test  *uint32 `json:"test,omitempty"`
	Score *uint32 `json:"score,omitempty"`
}

type job struct {
	ID        string     `json:"id"`
	Live      liveStatus `json:"live"`
	Logs      []string   `json:"logs"`
	Completed bool       `json:"completed"`
	Err       *string    `json:"error,omitempty"`
}

func main() {
	var (
		toolchain string
		problem   string
		source    string
		judgeAPI  string
	)

	cmd := &cobra.Command{
		Use:   "judgectl",
		Short: "submit a solution to a judge daemon and follow its progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(toolchain, problem, source, judgeAPI)
		},
	}
	cmd.Flags().StringVar(&toolchain, "toolchain", "", "toolchain name (required)")
	cmd.Flags().StringVar(&problem, "problem", "", "problem id (required)")
	cmd.Flags().StringVar(&source, "source", "", "path to the submission source file (required)")
	cmd.Flags().StringVar(&judgeAPI, "judge-api", "http://localhost:8080", "base URL of the judge daemon's REST API")
	cmd.MarkFlagRequired("toolchain")
	cmd.MarkFlagRequired("problem")
	cmd.MarkFlagRequired("source")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(toolchain, problem, sourcePath, judgeAPI string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}

	reqBody, err := json.Marshal(judgeRequest{
		ToolchainName: toolchain,
		ProblemID:     problem,
		RunSourceB64:  base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return err
	}

	resp, err := http.Post(judgeAPI+"/jobs", "application/json", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("submit job: %w", err)
	}
	var j job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("submit job: server returned %s", resp.Status)
	}

	fmt.Printf("submitted job %s\n", j.ID)

	seenLogs := make(map[string]bool)
	var lastTest, lastScore *uint32

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		j, err := fetchJob(judgeAPI, j.ID)
		if err != nil {
			return fmt.Errorf("poll job: %w", err)
		}

		if j.Live.Test != nil && (lastTest == nil || *j.Live.Test != *lastTest) {
			fmt.Printf("running test %d\n", *j.Live.Test)
			lastTest = j.Live.Test
		}
		if j.Live.Score != nil && (lastScore == nil || *j.Live.Score != *lastScore) {
			fmt.Printf("score: %d\n", *j.Live.Score)
			lastScore = j.Live.Score
		}

		for _, kind := range j.Logs {
			if seenLogs[kind] {
				continue
			}
			seenLogs[kind] = true
			raw, err := fetchLog(judgeAPI, j.ID, kind)
			if err != nil {
				return fmt.Errorf("fetch log %s: %w", kind, err)
			}
			if err := os.WriteFile(fmt.Sprintf("log-%s.json", kind), raw, 0o644); err != nil {
				return fmt.Errorf("write log %s: %w", kind, err)
			}
			fmt.Printf("wrote log-%s.json\n", kind)
		}

		if j.Completed {
			if j.Err != nil {
				fmt.Fprintf(os.Stderr, "job failed: %s\n", *j.Err)
				os.Exit(1)
			}
			fmt.Println("job completed")
			return nil
		}
	}
	return nil
}

func fetchJob(judgeAPI, id string) (*job, error) {
	resp, err := http.Get(judgeAPI + "/jobs/" + id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	var j job
	if err := json.NewDecoder(resp.Body).Decode(&j); err != nil {
		return nil, err
	}
	return &j, nil
}

func fetchLog(judgeAPI, id, kind string) ([]byte, error) {
	resp, err := http.Get(judgeAPI + "/jobs/" + id + "/logs/" + kind)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
