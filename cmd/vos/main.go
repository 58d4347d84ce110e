package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ventureos/internal/app"
	"ventureos/internal/config"
	"ventureos/internal/db"
	"ventureos/internal/domain"
	"ventureos/internal/engine"
	"ventureos/internal/migrate"
	"ventureos/internal/repo"
	"ventureos/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "vos",
	Short: "Venture OS CLI",
	Long: `Venture OS runs the back office of a small consultancy:
clients, pipeline (opportunities, price offers, contracts), delivery
(projects, sprints, tasks, deployments) and an agent sync bridge.

Pipeline automations: winning an opportunity bootstraps a delivery
project, accepting an offer drafts a contract, activating a contract
bumps the client's health score. 'vos recommend' scores in-flight
projects and suggests what to work on next.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("VENTUREOS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(clientCmd())
	rootCmd.AddCommand(opportunityCmd())
	rootCmd.AddCommand(offerCmd())
	rootCmd.AddCommand(contractCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(sprintCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(focusCmd())
	rootCmd.AddCommand(deployCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(recommendCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(agentKeyCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", cfgPath)
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if err := app.Seed(cmd.Context(), repo.Repo{DB: conn}, cfg); err != nil {
				return err
			}
			fmt.Println("Workspace ready.")
			return nil
		},
	}
	return cmd
}

// --- clients ---

func clientCmd() *cobra.Command {
	c := &cobra.Command{Use: "client", Short: "Manage clients"}
	c.AddCommand(clientCreateCmd())
	c.AddCommand(clientListCmd())
	c.AddCommand(clientShowCmd())
	c.AddCommand(clientHealthCmd())
	return c
}

func clientCreateCmd() *cobra.Command {
	var name, company, email string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create client",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateClient(ctx, name, company, email, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "client name")
	cmd.Flags().StringVar(&company, "company", "", "company")
	cmd.Flags().StringVar(&email, "email", "", "email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func clientListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListClients(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Company", "Health"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Company, c.HealthScore})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func clientShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show client",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetClient(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	return cmd
}

func clientHealthCmd() *cobra.Command {
	var score int
	cmd := &cobra.Command{
		Use:   "health <id>",
		Short: "Set client health score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				now := time.Now().UTC().Format(time.RFC3339)
				if err := r.SetClientHealth(ctx, args[0], score, now); err != nil {
					return err
				}
				c, err := r.GetClient(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().IntVar(&score, "score", 50, "health score (0-100)")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}

// --- opportunities ---

func opportunityCmd() *cobra.Command {
	c := &cobra.Command{Use: "opportunity", Short: "Manage sales opportunities", Aliases: []string{"opp"}}
	c.AddCommand(opportunityCreateCmd())
	c.AddCommand(opportunityListCmd())
	c.AddCommand(opportunityStageCmd())
	return c
}

func opportunityCreateCmd() *cobra.Command {
	var clientID, title string
	var value float64
	var probability int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create opportunity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.CreateOpportunity(ctx, engine.OpportunityCreateOptions{
					ClientID:       clientID,
					Title:          title,
					EstimatedValue: value,
					Probability:    probability,
					ActorID:        viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().Float64Var(&value, "value", 0, "estimated value")
	cmd.Flags().IntVar(&probability, "probability", 0, "win probability (0-100)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func opportunityListCmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListOpportunities(ctx, stage)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Stage", "Value", "Prob"})
				for _, o := range items {
					tw.AppendRow(table.Row{o.ID, o.Title, o.Stage, o.EstimatedValue, o.Probability})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "stage filter")
	return cmd
}

func opportunityStageCmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "stage <id>",
		Short: "Set opportunity stage",
		Long:  "Moving to Won stamps won_at and bootstraps a delivery project.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.SetOpportunityStage(ctx, args[0], stage, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&stage, "to", "", "target stage")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// --- price offers ---

func offerCmd() *cobra.Command {
	c := &cobra.Command{Use: "offer", Short: "Manage price offers"}
	c.AddCommand(offerCreateCmd())
	c.AddCommand(offerListCmd())
	c.AddCommand(offerShowCmd())
	c.AddCommand(offerItemCmd())
	c.AddCommand(offerStatusCmd())
	return c
}

func offerCreateCmd() *cobra.Command {
	var clientID, opportunityID, title string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create price offer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.CreateOffer(ctx, engine.OfferCreateOptions{
					ClientID:      clientID,
					OpportunityID: opportunityID,
					Title:         title,
					ActorID:       viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id")
	cmd.Flags().StringVar(&opportunityID, "opportunity", "", "opportunity id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func offerListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List price offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListOffers(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Total"})
				for _, o := range items {
					tw.AppendRow(table.Row{o.ID, o.Title, o.Status, o.TotalValue})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func offerShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show offer with line items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				o, err := r.GetOffer(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	return cmd
}

func offerItemCmd() *cobra.Command {
	c := &cobra.Command{Use: "item", Short: "Manage offer line items"}

	var description string
	var quantity, unitPrice float64
	add := &cobra.Command{
		Use:   "add <offer-id>",
		Short: "Add line item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				it, err := e.AddOfferItem(ctx, args[0], description, quantity, unitPrice)
				if err != nil {
					return err
				}
				return printJSONOrTable(it)
			})
		},
	}
	add.Flags().StringVar(&description, "description", "", "description")
	add.Flags().Float64Var(&quantity, "qty", 1, "quantity")
	add.Flags().Float64Var(&unitPrice, "price", 0, "unit price")
	_ = add.MarkFlagRequired("description")

	remove := &cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove line item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.RemoveOfferItem(ctx, args[0])
			})
		},
	}

	c.AddCommand(add)
	c.AddCommand(remove)
	return c
}

func offerStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Set offer status",
		Long:  "Moving to Accepted drafts a contract from the offer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.SetOfferStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&status, "to", "", "target status")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// --- contracts ---

func contractCmd() *cobra.Command {
	c := &cobra.Command{Use: "contract", Short: "Manage contracts"}
	c.AddCommand(contractCreateCmd())
	c.AddCommand(contractListCmd())
	c.AddCommand(contractStatusCmd())
	return c
}

func contractCreateCmd() *cobra.Command {
	var clientID, title, endDate string
	var value float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateContract(ctx, engine.ContractCreateOptions{
					ClientID:   clientID,
					Title:      title,
					TotalValue: value,
					EndDate:    endDate,
					ActorID:    viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&clientID, "client", "", "client id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().Float64Var(&value, "value", 0, "total value")
	cmd.Flags().StringVar(&endDate, "end", "", "end date (RFC3339)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func contractListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListContracts(ctx, status)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Total"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Title, c.Status, c.TotalValue})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func contractStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Set contract status",
		Long:  "Moving to Active bumps the owning client's health score.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.SetContractStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&status, "to", "", "target status")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

// --- projects ---

func projectCmd() *cobra.Command {
	c := &cobra.Command{Use: "project", Short: "Manage projects"}
	c.AddCommand(projectCreateCmd())
	c.AddCommand(projectListCmd())
	c.AddCommand(projectShowCmd())
	c.AddCommand(projectUpdateCmd())
	c.AddCommand(projectLifecycleCmd())
	return c
}

func projectCreateCmd() *cobra.Command {
	var name, clientID, status string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.CreateProject(ctx, engine.ProjectCreateOptions{
					Name:     name,
					ClientID: clientID,
					Status:   status,
					ActorID:  viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&clientID, "client", "", "client id")
	cmd.Flags().StringVar(&status, "status", "", "initial status")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				f := repo.ProjectFilters{}
				if status != "" {
					f.Statuses = []string{status}
				}
				items, err := r.ListProjects(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Progress"})
				for _, p := range items {
					tw.AppendRow(table.Row{p.ID, p.Name, p.Status, fmt.Sprintf("%d%%", p.Progress)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func projectShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				p, err := r.GetProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func projectUpdateCmd() *cobra.Command {
	var name, status string
	var progress int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var u repo.ProjectUpdate
				if cmd.Flags().Changed("name") {
					u.Name = &name
				}
				if cmd.Flags().Changed("status") {
					u.Status = &status
				}
				if cmd.Flags().Changed("progress") {
					u.Progress = &progress
				}
				p, err := e.UpdateProject(ctx, args[0], u, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().IntVar(&progress, "progress", 0, "progress (0-100)")
	return cmd
}

func projectLifecycleCmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "lifecycle <project-id>",
		Short: "Show or advance project lifecycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if stage != "" {
					l, err := e.AdvanceLifecycle(ctx, args[0], stage, viper.GetString("actor-id"))
					if err != nil {
						return err
					}
					return printJSONOrTable(l)
				}
				l, err := e.Repo.GetLifecycleByProject(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(l)
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "advance to stage")
	return cmd
}

// --- sprints ---

func sprintCmd() *cobra.Command {
	c := &cobra.Command{Use: "sprint", Short: "Manage sprints"}
	c.AddCommand(sprintStartCmd())
	c.AddCommand(sprintListCmd())
	c.AddCommand(sprintCompleteCmd())
	return c
}

func sprintStartCmd() *cobra.Command {
	var projectID, goal, plannedEnd string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start sprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateSprint(ctx, engine.SprintCreateOptions{
					ProjectID:    projectID,
					Goal:         goal,
					PlannedEndAt: plannedEnd,
					ActorID:      viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&goal, "goal", "", "sprint goal")
	cmd.Flags().StringVar(&plannedEnd, "end", "", "planned end (RFC3339)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func sprintListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListSprints(ctx, projectID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "#", "Status", "Scope Changes", "Goal"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.SprintNumber, s.Status, s.ScopeChanges, s.Goal})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func sprintCompleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Complete sprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CompleteSprint(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

// --- tasks ---

func taskCmd() *cobra.Command {
	c := &cobra.Command{Use: "task", Short: "Manage tasks"}
	c.AddCommand(taskCreateCmd())
	c.AddCommand(taskListCmd())
	c.AddCommand(taskShowCmd())
	c.AddCommand(taskStatusCmd())
	c.AddCommand(taskCurrentCmd())
	c.AddCommand(taskMoveCmd())
	c.AddCommand(taskSkipCmd())
	c.AddCommand(taskTimeCmd())
	c.AddCommand(taskSubtaskCmd())
	return c
}

func taskCreateCmd() *cobra.Command {
	var projectID, sprintID, title, description, priority, dueDate string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, engine.TaskCreateOptions{
					ProjectID:   projectID,
					SprintID:    sprintID,
					Title:       title,
					Description: description,
					Priority:    priority,
					DueDate:     dueDate,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&sprintID, "sprint", "", "sprint id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&priority, "priority", "", "priority (Critical, High, Medium, Low)")
	cmd.Flags().StringVar(&dueDate, "due", "", "due date (RFC3339)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f repo.TaskFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListTasks(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Priority", "Current"})
				for _, t := range items {
					current := ""
					if t.IsCurrent {
						current = "*"
					}
					tw.AppendRow(table.Row{t.ID, t.Title, t.Status, t.Priority, current})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project filter")
	cmd.Flags().StringVar(&f.SprintID, "sprint", "", "sprint filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "max rows")
	return cmd
}

func taskShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				t, err := r.GetTask(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskStatusCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Set task status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTask(ctx, args[0], engine.TaskUpdate{Status: &status}, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&status, "to", "", "target status")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func taskCurrentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "current <id>",
		Short: "Mark task as the project's current task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetCurrentTask(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskMoveCmd() *cobra.Command {
	var sprintID string
	cmd := &cobra.Command{
		Use:   "move <id>",
		Short: "Move task to sprint",
		Long:  "An empty --sprint removes the task from its sprint. Moves against a sprint past its planning grace count as scope changes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.MoveTaskToSprint(ctx, args[0], sprintID, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&sprintID, "sprint", "", "target sprint id")
	return cmd
}

func taskSkipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skip <id>",
		Short: "Skip task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SkipTask(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskTimeCmd() *cobra.Command {
	var minutes int
	cmd := &cobra.Command{
		Use:   "time <id>",
		Short: "Log time on task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.LogTime(ctx, args[0], minutes)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().IntVar(&minutes, "minutes", 1, "minutes to add")
	return cmd
}

func taskSubtaskCmd() *cobra.Command {
	c := &cobra.Command{Use: "subtask", Short: "Manage subtasks"}

	var title string
	add := &cobra.Command{
		Use:   "add <task-id>",
		Short: "Add subtask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.AddSubtask(ctx, args[0], title)
				if err != nil {
					return err
				}
				return printSubtasks(t)
			})
		},
	}
	add.Flags().StringVar(&title, "title", "", "subtask title")
	_ = add.MarkFlagRequired("title")

	toggle := &cobra.Command{
		Use:   "toggle <task-id> <subtask-id>",
		Short: "Toggle subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ToggleSubtask(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printSubtasks(t)
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <task-id> <subtask-id>",
		Short: "Remove subtask",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.RemoveSubtask(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printSubtasks(t)
			})
		},
	}

	c.AddCommand(add)
	c.AddCommand(toggle)
	c.AddCommand(remove)
	return c
}

func printSubtasks(t domain.Task) error {
	subs := domain.DecodeSubtasks(t.SubtasksJSON)
	if viper.GetBool("json") {
		return printJSON(map[string]any{"subtasks": subs, "progress": domain.SubtaskProgress(subs)})
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Done"})
	for _, s := range subs {
		done := ""
		if s.Completed {
			done = "x"
		}
		tw.AppendRow(table.Row{s.ID, s.Title, done})
	}
	tw.Render()
	fmt.Printf("Progress: %d%%\n", domain.SubtaskProgress(subs))
	return nil
}

// --- focus sessions ---

func focusCmd() *cobra.Command {
	c := &cobra.Command{Use: "focus", Short: "Track focus sessions"}

	var projectID, taskID string
	start := &cobra.Command{
		Use:   "start",
		Short: "Start focus session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.StartFocusSession(ctx, projectID, taskID)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	start.Flags().StringVar(&projectID, "project", "", "project id")
	start.Flags().StringVar(&taskID, "task", "", "task id")
	_ = start.MarkFlagRequired("project")

	end := &cobra.Command{
		Use:   "end <session-id>",
		Short: "End focus session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.EndFocusSession(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}

	c.AddCommand(start)
	c.AddCommand(end)
	return c
}

// --- deployments ---

func deployCmd() *cobra.Command {
	c := &cobra.Command{Use: "deploy", Short: "Manage deployments"}

	var projectID, name, environment, url string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.CreateDeployment(ctx, engine.DeploymentCreateOptions{
					ProjectID:   projectID,
					Name:        name,
					Environment: environment,
					URL:         url,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	create.Flags().StringVar(&projectID, "project", "", "project id")
	create.Flags().StringVar(&name, "name", "", "deployment name")
	create.Flags().StringVar(&environment, "env", "production", "environment")
	create.Flags().StringVar(&url, "url", "", "deployment url")
	_ = create.MarkFlagRequired("project")
	_ = create.MarkFlagRequired("name")

	var filterProject string
	list := &cobra.Command{
		Use:   "list",
		Short: "List deployments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListDeployments(ctx, filterProject)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Env", "Status"})
				for _, d := range items {
					tw.AppendRow(table.Row{d.ID, d.Name, d.Environment, d.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&filterProject, "project", "", "project filter")

	var status string
	statusCmd := &cobra.Command{
		Use:   "status <id>",
		Short: "Set deployment status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				d, err := e.SetDeploymentStatus(ctx, args[0], status, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(d)
			})
		},
	}
	statusCmd.Flags().StringVar(&status, "to", "", "target status")
	_ = statusCmd.MarkFlagRequired("to")

	c.AddCommand(create)
	c.AddCommand(list)
	c.AddCommand(statusCmd)
	return c
}

// --- reports ---

func reportCmd() *cobra.Command {
	c := &cobra.Command{Use: "report", Short: "Agent reports"}

	var clientID, title, body, severity string
	create := &cobra.Command{
		Use:   "create",
		Short: "File agent report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.CreateAgentReport(ctx, clientID, title, body, severity)
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
	create.Flags().StringVar(&clientID, "client", "", "client id")
	create.Flags().StringVar(&title, "title", "", "title")
	create.Flags().StringVar(&body, "body", "", "body")
	create.Flags().StringVar(&severity, "severity", "info", "severity (critical, warning, info)")
	_ = create.MarkFlagRequired("title")

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List agent reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAgentReports(ctx, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Severity", "Title"})
				for _, rep := range items {
					tw.AppendRow(table.Row{rep.ID, rep.Severity, rep.Title})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "n", 20, "number of reports")

	c.AddCommand(create)
	c.AddCommand(list)
	return c
}

// --- recommendation ---

func recommendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend next project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rec, err := e.Recommend(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rec)
				}
				if rec.Project == nil {
					fmt.Println(rec.Reason)
					return nil
				}
				fmt.Printf("Work on %q (score %.1f)\n%s\n", rec.Project.Name, rec.Score, rec.Reason)
				return nil
			})
		},
	}
	return cmd
}

// --- audit log ---

func logCmd() *cobra.Command {
	c := &cobra.Command{Use: "log", Short: "Audit log"}
	c.AddCommand(logTailCmd())
	return c
}

func logTailCmd() *cobra.Command {
	var n int
	var entityKind, entityID, severity string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail audit logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				logs, err := r.ListAuditLogs(ctx, repo.AuditFilters{
					EntityKind: entityKind,
					EntityID:   entityID,
					Severity:   severity,
					Limit:      n,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(logs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Time", "Severity", "Action", "Message"})
				for _, l := range logs {
					tw.AppendRow(table.Row{l.ID, l.CreatedAt, l.Severity, l.Action, l.Message})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind filter")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id filter")
	cmd.Flags().StringVar(&severity, "severity", "", "severity filter")
	return cmd
}

// --- agent keys ---

func agentKeyCmd() *cobra.Command {
	c := &cobra.Command{Use: "agent-key", Short: "Manage agent keys"}

	var name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Mint agent key",
		Long:  "Prints the plaintext key once; only its hash is stored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				plaintext, key, err := app.NewAgentKey(ctx, r, name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"key": plaintext, "id": key.ID, "name": key.Name})
				}
				fmt.Printf("Agent key %s created.\nKey (save it now, it will not be shown again):\n%s\n", key.ID, plaintext)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "key name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List agent keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAgentKeys(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete agent key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAgentKey(ctx, args[0])
			})
		},
	}

	c.AddCommand(create)
	c.AddCommand(list)
	c.AddCommand(remove)
	return c
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.LoadOptional(workspace)
			if err != nil {
				return err
			}
			if err := app.Seed(cmd.Context(), repo.Repo{DB: conn}, cfg); err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("VENTUREOS_JWT_SECRET")}
			if cfg.Agent.AllowEnvSecret {
				authCfg.AgentEnvSecret = os.Getenv("VENTUREOS_AGENT_SECRET")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(cmd.Context(), e)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Venture OS API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
