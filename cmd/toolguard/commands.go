package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codefionn/toolguard/internal/boundary"
	"github.com/codefionn/toolguard/internal/tools"
)

var (
	invokeParams  string
	invokeSession string
)

// validateCmd checks candidate paths against the project root without
// touching them.
var validateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "Check whether paths resolve inside the project root",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DefaultRoot == "" {
			return fmt.Errorf("no project root; pass --root")
		}
		failed := false
		for _, candidate := range args {
			resolved, err := boundary.Validate(candidate, cfg.DefaultRoot)
			if err != nil {
				failed = true
				if v, ok := boundary.AsViolation(err); ok {
					fmt.Printf("%s: rejected (%s)\n", candidate, v.Reason)
				} else {
					fmt.Printf("%s: rejected (%v)\n", candidate, err)
				}
				continue
			}
			fmt.Printf("%s: ok -> %s\n", candidate, resolved)
		}
		if failed {
			os.Exit(2)
		}
		return nil
	},
}

// invokeCmd dispatches one tool call and prints the JSON result.
var invokeCmd = &cobra.Command{
	Use:   "invoke <tool>",
	Short: "Dispatch a single tool call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := map[string]interface{}{}
		if invokeParams != "" {
			if err := json.Unmarshal([]byte(invokeParams), &params); err != nil {
				return fmt.Errorf("invalid --params: %w", err)
			}
		}
		call := &tools.ToolCall{
			ID:         uuid.NewString(),
			Name:       args[0],
			Parameters: params,
			Context:    map[string]string{},
		}
		if invokeSession != "" {
			call.Context["session_id"] = invokeSession
		} else if cfg.DefaultRoot != "" {
			call.Context["root"] = cfg.DefaultRoot
		}

		result := app.registry.Execute(context.Background(), call)
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		if result.Outcome != tools.OutcomeOK {
			os.Exit(1)
		}
		return nil
	},
}

// scriptCmd runs a script file in a fresh session sandbox.
var scriptCmd = &cobra.Command{
	Use:   "script <file>",
	Short: "Run a script in a sandboxed session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DefaultRoot == "" {
			return fmt.Errorf("no project root; pass --root")
		}
		source, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		sess, err := app.manager.Open(cfg.DefaultRoot)
		if err != nil {
			return err
		}
		defer app.manager.Close(sess.ID)

		call := &tools.ToolCall{
			ID:         uuid.NewString(),
			Name:       "run_script",
			Parameters: map[string]interface{}{"script": string(source)},
			Context:    map[string]string{"session_id": sess.ID},
		}
		result := app.registry.Execute(context.Background(), call)
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		if result.Outcome != tools.OutcomeOK {
			os.Exit(1)
		}
		return nil
	},
}

// tasksCmd lists configured build tasks.
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List configured build tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range app.tasks.Tasks() {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	invokeCmd.Flags().StringVarP(&invokeParams, "params", "p", "", "tool parameters as JSON")
	invokeCmd.Flags().StringVarP(&invokeSession, "session", "s", "", "session id for the call")
}
