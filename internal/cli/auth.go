package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"castenobar/internal/session"
)

func (a *app) signupCmd() *cobra.Command {
	var phone, pin, confirm string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account with a WhatsApp number and a 4-digit PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := session.CheckSignUpInput(phone, pin, confirm); err != nil {
				return err
			}
			ctx, cancel := a.timeout(cmd)
			defer cancel()
			if err := a.manager.SignUp(ctx, phone, pin); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Account created successfully!")
			nextStep(out, session.RouteSetup)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "WhatsApp number, e.g. +919876543210")
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN")
	cmd.Flags().StringVar(&confirm, "confirm-pin", "", "the same PIN again")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("pin")
	_ = cmd.MarkFlagRequired("confirm-pin")
	return cmd
}

func (a *app) signinCmd() *cobra.Command {
	var phone, pin string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with a WhatsApp number and PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := session.CheckInput(phone, pin); err != nil {
				return err
			}
			ctx, cancel := a.timeout(cmd)
			defer cancel()
			if err := a.manager.SignIn(ctx, phone, pin); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Signed in successfully!")

			snap := a.manager.Current()
			p, _, err := a.ownProfile(ctx, snap)
			if err != nil {
				return err
			}
			nextStep(out, a.manager.Destination(p))
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "WhatsApp number")
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN")
	_ = cmd.MarkFlagRequired("phone")
	_ = cmd.MarkFlagRequired("pin")
	return cmd
}

func (a *app) signoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out of this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := a.timeout(cmd)
			defer cancel()
			err := a.manager.SignOut(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return err
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			snap := a.manager.Current()
			if snap.State != session.StateAuthenticated {
				if a.jsonOut {
					return printJSON(out, map[string]any{"state": snap.State.String()})
				}
				fmt.Fprintln(out, "Not signed in.")
				nextStep(out, session.RouteAuth)
				return nil
			}

			ctx, cancel := a.timeout(cmd)
			defer cancel()
			p, _, err := a.ownProfile(ctx, snap)
			if err != nil {
				return err
			}
			route := a.manager.Destination(p)
			if a.jsonOut {
				return printJSON(out, map[string]any{
					"state":      snap.State.String(),
					"identity":   snap.Identity,
					"expires_at": snap.Session.ExpiresAt,
					"profile":    p,
					"next":       route,
				})
			}
			fmt.Fprintf(out, "Identity:  %s\n", snap.Identity.ID)
			fmt.Fprintf(out, "Login:     %s\n", snap.Identity.LoginID)
			fmt.Fprintf(out, "Expires:   %s\n", snap.Session.ExpiresAt.Local().Format("2006-01-02 15:04"))
			if p != nil {
				fmt.Fprintf(out, "WhatsApp:  %s\n", p.WhatsAppNumber)
				fmt.Fprintf(out, "Name:      %s\n", orDash(p.Name))
				if p.IsAdmin {
					fmt.Fprintln(out, "Role:      Admin")
				}
			}
			nextStep(out, route)
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow session changes pushed by the server until this session ends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.requireAuth(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			unsubscribe := a.manager.Subscribe(func(c session.Change) {
				if a.jsonOut {
					_ = printJSON(out, c)
					return
				}
				fmt.Fprintf(out, "session %s\n", c.Event)
			})
			defer unsubscribe()

			fmt.Fprintln(out, "Watching session events (Ctrl+C to stop)...")
			return a.backend.Watch(cmd.Context())
		},
	}
}
