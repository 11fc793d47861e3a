package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"castenobar/internal/directory"
	"castenobar/internal/models"
	"castenobar/internal/profile"
	"castenobar/internal/session"
)

var errProfileIncomplete = errors.New("complete your profile first: run `cnb setup`")

// directoryProfiles returns the other members' profiles once the caller has
// finished setup.
func (a *app) directoryProfiles(ctx context.Context) ([]models.Profile, error) {
	snap, err := a.requireAuth()
	if err != nil {
		return nil, err
	}
	own, _, err := a.ownProfile(ctx, snap)
	if err != nil {
		return nil, err
	}
	if a.manager.Destination(own) != session.RouteDirectory {
		return nil, errProfileIncomplete
	}
	return a.backend.ListProfiles(ctx)
}

func (a *app) browseCmd() *cobra.Command {
	var c directory.Criteria
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse member profiles",
		Long: `Browse member profiles. Filters combine; an empty filter matches everyone.

Examples:
  cnb browse
  cnb browse --city chen --gender Female
  cnb browse --profession doctor --age 31-35`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.timeout(cmd)
			defer cancel()
			all, err := a.directoryProfiles(ctx)
			if err != nil {
				return err
			}
			if band := strings.TrimSpace(c.AgeBand); band != "" && !strings.EqualFold(band, directory.All) {
				if _, ok := directory.ParseBand(band); !ok {
					return fmt.Errorf("unknown age band %q: see `cnb bands`", c.AgeBand)
				}
			}
			now := a.now()
			shown := directory.Filter(all, c, now)

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, map[string]any{"profiles": shown, "count": len(shown), "total": len(all)})
			}
			fmt.Fprintf(out, "Showing %d of %d profiles\n", len(shown), len(all))
			if len(shown) == 0 {
				fmt.Fprintln(out, "No profiles found matching your criteria.")
				return nil
			}
			w := newTable(out)
			printTableHeader(w, "ID", "NAME", "AGE", "GENDER", "CITY", "PROFESSION", "TIMEFRAME")
			for _, p := range shown {
				age := "-"
				if info := p.AgeInfo(); info.Kind != models.AgeUnknown {
					age = strconv.Itoa(models.ResolveAge(info, now))
				}
				name := orDash(p.Name)
				if p.IsAdmin {
					name += " (Admin)"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					p.ID,
					truncate(name, 24),
					age,
					orDash(string(p.Gender)),
					orDash(p.City),
					truncate(orDash(p.Profession), 20),
					orDash(string(p.MarriageTimeframe)),
				)
			}
			return w.Flush()
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&c.City, "city", "", "city contains (case-insensitive)")
	fs.StringVar(&c.Gender, "gender", "", "Male, Female, Other or all")
	fs.StringVar(&c.Profession, "profession", "", "profession contains (case-insensitive)")
	fs.StringVar(&c.AgeBand, "age", "", "age band, see `cnb bands`")
	return cmd
}

// memberByID finds a directory profile by the ID column of `cnb browse`.
func (a *app) memberByID(cmd *cobra.Command, arg string) (*models.Profile, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid profile id %q", arg)
	}
	ctx, cancel := a.timeout(cmd)
	defer cancel()
	all, err := a.directoryProfiles(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if uint64(all[i].ID) == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("profile %d not found", id)
}

func (a *app) contactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contact <id>",
		Short: "Print the WhatsApp link that opens a chat with a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.memberByID(cmd, args[0])
			if err != nil {
				return err
			}
			link, err := profile.ContactLink(*p)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]string{"url": link})
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
}

func (a *app) shareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "share <id>",
		Short: "Print a member's profile as shareable text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.memberByID(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), profile.ShareText(*p, a.now()))
			return nil
		},
	}
}

func (a *app) bandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bands",
		Short: "List the age bands accepted by `cnb browse --age`",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, directory.Bands())
			}
			w := newTable(out)
			printTableHeader(w, "BAND", "LABEL", "AGES")
			for _, b := range directory.Bands() {
				fmt.Fprintf(w, "%s\t%s\t%d-%d\n", b.Key, b.Label, b.Min, b.Max)
			}
			return w.Flush()
		},
	}
}

func (a *app) overviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "overview",
		Short:  "Show member statistics (admin only)",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireAuth(); err != nil {
				return err
			}
			ctx, cancel := a.timeout(cmd)
			defer cancel()
			o, err := a.backend.Overview(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), o)
		},
	}
}
