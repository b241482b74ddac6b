package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewImportCmd создаёт команду импорта пакета.
//
// Запрос собирается из флагов либо читается целиком из --file (JSON).
func NewImportCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var (
		req           ImportRequest
		labels        string
		copyProjectID int64
		file          string
		async         bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an orchestrator package",
		Example: `  orcpub import --user alice --project proj1 --project-id 7 \
    --resource 3f2c... --bml-version v000001 --labels dev`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read request file: %w", err)
				}
				if err := json.Unmarshal(data, &req); err != nil {
					return fmt.Errorf("parse request file: %w", err)
				}
			}
			if labels != "" {
				req.Labels = splitLabels(labels)
			}
			if cmd.Flags().Changed("copy-project-id") {
				req.CopyProjectID = &copyProjectID
			}

			client := clientFn()
			out := outputFn()

			result, err := client.Import(req, async)
			if err != nil {
				return err
			}

			if async {
				out.Success(fmt.Sprintf("Import queued: %s", result.RequestID))
				out.Print([]string{"REQUEST_ID"}, [][]string{{result.RequestID}}, result)
				return nil
			}

			out.Success(fmt.Sprintf("Orchestrator imported: %d", result.OrchestratorID))
			out.Print(
				[]string{"ORCHESTRATOR_ID"},
				[][]string{{strconv.FormatInt(result.OrchestratorID, 10)}},
				result,
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.UserName, "user", "", "User performing the import")
	f.StringVar(&req.ProjectName, "project", "", "Source project name")
	f.Int64Var(&req.ProjectID, "project-id", 0, "Source project id")
	f.StringVar(&req.ResourceID, "resource", "", "Package resource id in the blob store")
	f.StringVar(&req.BMLVersion, "bml-version", "", "Package resource version")
	f.StringVar(&labels, "labels", "", "Comma-separated environment labels (dev, prod)")
	f.StringVar(&req.Workspace.Name, "workspace", "", "Workspace name")
	f.Int64Var(&req.Workspace.ID, "workspace-id", 0, "Workspace id")
	f.Int64Var(&copyProjectID, "copy-project-id", 0, "Fork into this project id")
	f.StringVar(&req.CopyProjectName, "copy-project-name", "", "Fork into this project name")
	f.StringVarP(&file, "file", "f", "", "Read the request from a JSON file")
	f.BoolVar(&async, "async", false, "Queue the import and return immediately")

	return cmd
}

// NewShowCmd создаёт команду просмотра оркестратора.
func NewShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show <orchestrator-id>",
		Short: "Show orchestrator details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			o, err := clientFn().GetOrchestrator(id)
			if err != nil {
				return err
			}

			outputFn().Print(
				[]string{"ID", "UUID", "NAME", "PROJECT", "TYPE", "CREATOR", "CREATED"},
				[][]string{{
					strconv.FormatInt(o.ID, 10),
					o.UUID,
					o.Name,
					strconv.FormatInt(o.ProjectID, 10),
					o.Type,
					o.Creator,
					o.CreateTime,
				}},
				o,
			)
			return nil
		},
	}
}

// NewVersionsCmd создаёт команду списка версий.
func NewVersionsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <orchestrator-id>",
		Short: "List orchestrator versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			versions, err := clientFn().ListVersions(id)
			if err != nil {
				return err
			}

			headers := []string{"VERSION", "VALID", "APP_ID", "CONTEXT_ID", "UPDATER", "UPDATED"}
			rows := make([][]string, len(versions))
			for i, v := range versions {
				appID := "-"
				if v.AppID != nil {
					appID = strconv.FormatInt(*v.AppID, 10)
				}
				rows[i] = []string{v.Version, strconv.FormatBool(v.ValidFlag), appID, v.ContextID, v.Updater, v.UpdateTime}
			}

			outputFn().Print(headers, rows, versions)
			return nil
		},
	}
}

// NewActivateCmd создаёт команду активации версии.
func NewActivateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "activate <orchestrator-id> <version>",
		Short: "Make a version the only valid one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			result, err := clientFn().ActivateVersion(id, args[1])
			if err != nil {
				return err
			}

			out := outputFn()
			out.Success(fmt.Sprintf("Version %s activated", result.Version))
			if out.jsonMode {
				out.JSON(result)
			}
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid orchestrator id: %q", s)
	}
	return id, nil
}

func splitLabels(s string) []string {
	var labels []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			labels = append(labels, part)
		}
	}
	return labels
}
