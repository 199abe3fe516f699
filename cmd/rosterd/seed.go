package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/calderhq/rosterd/internal/auth"
	"github.com/calderhq/rosterd/internal/config"
	"github.com/calderhq/rosterd/internal/profile"
	"github.com/calderhq/rosterd/internal/team"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the season's teams and their managers",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedTeams lists the season's teams. Each team's manager email comes
// from <TEAM>_MANAGER_EMAIL; teams without one are created memberless.
var seedTeams = []string{"Titans", "Trojans", "Gladiators", "Spartans", "Argonauts"}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	teams := team.NewStore(pool)
	profiles := profile.NewStore(pool)

	for _, name := range seedTeams {
		teamID, err := teams.EnsureTeam(ctx, name)
		if err != nil {
			return fmt.Errorf("ensuring team %s: %w", name, err)
		}
		slog.Info("team ready", "team", name, "team_id", teamID)

		envKey := strings.ToUpper(name) + "_MANAGER_EMAIL"
		email := strings.TrimSpace(strings.ToLower(os.Getenv(envKey)))
		if email == "" {
			continue
		}

		displayName := name + " Manager"
		p, err := profiles.Upsert(ctx, profile.UpsertInput{
			Email:       email,
			DisplayName: &displayName,
		})
		if err != nil {
			return fmt.Errorf("upserting manager profile for %s: %w", name, err)
		}
		if err := teams.UpsertMembership(ctx, teamID, p.ID, auth.RoleManager); err != nil {
			return fmt.Errorf("assigning manager for %s: %w", name, err)
		}
		slog.Info("manager assigned", "team", name, "email", email)
	}

	slog.Info("seed complete", "teams", len(seedTeams))
	return nil
}
