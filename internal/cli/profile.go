package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"castenobar/internal/models"
	"castenobar/internal/profile"
)

type profileFlags struct {
	name, dob, profession, gender, city, timeframe string
	aboutMe, whatsapp, email, photo                string
	age                                            int

	consentNoDowry, consentMedical, consentCaste bool
	consentReligion, consentShare, consentAll    bool
}

func (f *profileFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.name, "name", "", "full name")
	fs.IntVar(&f.age, "age", 0, "age in years")
	fs.StringVar(&f.dob, "dob", "", "date of birth, YYYY-MM-DD")
	fs.StringVar(&f.profession, "profession", "", "profession")
	fs.StringVar(&f.gender, "gender", "", "Male, Female or Other")
	fs.StringVar(&f.city, "city", "", "city")
	fs.StringVar(&f.timeframe, "timeframe", "", `marriage timeframe: "Within 6 months", "6-12 months", "1-2 years" or "2+ years"`)
	fs.StringVar(&f.aboutMe, "about", "", "about me, up to 500 characters")
	fs.StringVar(&f.whatsapp, "whatsapp", "", "WhatsApp number; only its formatting can change")
	fs.StringVar(&f.email, "email", "", "email address")
	fs.StringVar(&f.photo, "photo", "", "path to a profile photo")
	fs.BoolVar(&f.consentNoDowry, "consent-no-dowry", false, "I will neither give nor take dowry")
	fs.BoolVar(&f.consentMedical, "consent-medical", false, "I will share a medical report before marriage")
	fs.BoolVar(&f.consentCaste, "consent-any-caste", false, "I am open to any caste")
	fs.BoolVar(&f.consentReligion, "consent-any-religion", false, "I am open to any religion")
	fs.BoolVar(&f.consentShare, "consent-share-contact", false, "my contact may be shown to members")
	fs.BoolVar(&f.consentAll, "consent-all", false, "give all five consents")
}

// apply overlays the flags the user actually set onto d.
func (f *profileFlags) apply(cmd *cobra.Command, d *profile.Draft) {
	fs := cmd.Flags()
	if fs.Changed("name") {
		d.Name = f.name
	}
	if fs.Changed("age") {
		age := f.age
		d.Age = &age
		if !fs.Changed("dob") {
			d.DateOfBirth = ""
		}
	}
	if fs.Changed("dob") {
		d.DateOfBirth = f.dob
		if !fs.Changed("age") {
			d.Age = nil
		}
	}
	if fs.Changed("profession") {
		d.Profession = f.profession
	}
	if fs.Changed("gender") {
		d.Gender = models.Gender(f.gender)
	}
	if fs.Changed("city") {
		d.City = f.city
	}
	if fs.Changed("timeframe") {
		d.MarriageTimeframe = models.MarriageTimeframe(f.timeframe)
	}
	if fs.Changed("about") {
		d.AboutMe = f.aboutMe
	}
	if fs.Changed("whatsapp") {
		d.WhatsAppNumber = f.whatsapp
	}
	if fs.Changed("email") {
		d.Email = f.email
	}
	if f.consentAll {
		d.ConsentNoDowry, d.ConsentMedicalReport, d.ConsentAnyCaste = true, true, true
		d.ConsentAnyReligion, d.ConsentShareContact = true, true
		return
	}
	if fs.Changed("consent-no-dowry") {
		d.ConsentNoDowry = f.consentNoDowry
	}
	if fs.Changed("consent-medical") {
		d.ConsentMedicalReport = f.consentMedical
	}
	if fs.Changed("consent-any-caste") {
		d.ConsentAnyCaste = f.consentCaste
	}
	if fs.Changed("consent-any-religion") {
		d.ConsentAnyReligion = f.consentReligion
	}
	if fs.Changed("consent-share-contact") {
		d.ConsentShareContact = f.consentShare
	}
}

func (f *profileFlags) openPhoto() (*profile.Photo, func(), error) {
	if f.photo == "" {
		return nil, func() {}, nil
	}
	file, err := os.Open(f.photo)
	if err != nil {
		return nil, nil, fmt.Errorf("open photo: %w", err)
	}
	return &profile.Photo{Filename: filepath.Base(f.photo), Body: file}, func() { file.Close() }, nil
}

// editProfile loads the owner's row, overlays the flags and submits it.
func (a *app) editProfile(cmd *cobra.Command, flags *profileFlags) (*models.Profile, error) {
	snap, err := a.requireAuth()
	if err != nil {
		return nil, err
	}
	ctx, cancel := a.timeout(cmd)
	defer cancel()

	current, _, err := a.ownProfile(ctx, snap)
	if err != nil {
		return nil, err
	}
	var draft profile.Draft
	if current != nil {
		draft = profile.DraftFrom(current)
	}
	flags.apply(cmd, &draft)
	if err := profile.CheckNumberUnchanged(current, draft); err != nil {
		return nil, err
	}

	photo, closePhoto, err := flags.openPhoto()
	if err != nil {
		return nil, err
	}
	defer closePhoto()

	return a.flow.Submit(ctx, snap.Identity.ID, draft, photo)
}

func (a *app) setupCmd() *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Complete your profile",
		Long: `Complete your profile. Every field except "about" and the photo is
required, as is one of --age or --dob. All five consents must be given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.editProfile(cmd, flags)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, p)
			}
			fmt.Fprintln(out, "Profile saved successfully!")
			nextStep(out, a.manager.Destination(p))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "View and change your profile and preferences",
	}
	cmd.AddCommand(a.settingsShowCmd(), a.settingsProfileCmd(), a.settingsPrefsCmd())
	return cmd
}

func (a *app) settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile and preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.requireAuth()
			if err != nil {
				return err
			}
			ctx, cancel := a.timeout(cmd)
			defer cancel()
			p, st, err := a.ownProfile(ctx, snap)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, map[string]any{"profile": p, "settings": st})
			}
			if p == nil {
				fmt.Fprintln(out, "No profile yet.")
			} else {
				fmt.Fprintln(out, profile.ShareText(*p, a.now()))
			}
			fmt.Fprintln(out)
			printSettings(out, st)
			return nil
		},
	}
}

func (a *app) settingsProfileCmd() *cobra.Command {
	flags := &profileFlags{}
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit your profile; unset flags keep their current values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.editProfile(cmd, flags)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile updated successfully!")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) settingsPrefsCmd() *cobra.Command {
	var emailNotifications, visible, showWhatsApp, showEmail bool
	var theme, language string
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Change notification, privacy and display preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := a.requireAuth()
			if err != nil {
				return err
			}
			ctx, cancel := a.timeout(cmd)
			defer cancel()
			_, st, err := a.ownProfile(ctx, snap)
			if err != nil {
				return err
			}

			fs := cmd.Flags()
			next := *st
			if fs.Changed("email-notifications") {
				next.EmailNotifications = emailNotifications
			}
			if fs.Changed("visible") {
				next.ProfileVisibility = visible
			}
			if fs.Changed("show-whatsapp") {
				next.ShowWhatsAppPublicly = showWhatsApp
			}
			if fs.Changed("show-email") {
				next.ShowEmailPublicly = showEmail
			}
			if fs.Changed("theme") {
				next.ThemePreference = theme
			}
			if fs.Changed("language") {
				next.LanguagePreference = language
			}

			saved, err := a.flow.SaveSettings(ctx, snap.Identity.ID, next)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOut {
				return printJSON(out, saved)
			}
			fmt.Fprintln(out, "Settings saved successfully!")
			printSettings(out, saved)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.BoolVar(&emailNotifications, "email-notifications", true, "receive email notifications")
	fs.BoolVar(&visible, "visible", true, "show my profile in the directory")
	fs.BoolVar(&showWhatsApp, "show-whatsapp", true, "show my WhatsApp number to members")
	fs.BoolVar(&showEmail, "show-email", false, "show my email to members")
	fs.StringVar(&theme, "theme", "system", "light, dark or system")
	fs.StringVar(&language, "language", "en", "interface language")
	return cmd
}

func printSettings(w io.Writer, st *models.Settings) {
	yn := func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	}
	fmt.Fprintf(w, "Email notifications:  %s\n", yn(st.EmailNotifications))
	fmt.Fprintf(w, "Profile visible:      %s\n", yn(st.ProfileVisibility))
	fmt.Fprintf(w, "Show WhatsApp:        %s\n", yn(st.ShowWhatsAppPublicly))
	fmt.Fprintf(w, "Show email:           %s\n", yn(st.ShowEmailPublicly))
	fmt.Fprintf(w, "Theme:                %s\n", st.ThemePreference)
	fmt.Fprintf(w, "Language:             %s\n", st.LanguagePreference)
	if !st.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:              %s\n", st.UpdatedAt.Local().Format(time.RFC822))
	}
}
