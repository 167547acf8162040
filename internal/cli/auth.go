package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joyverse/joyverse-backend/internal/api/response"
)

func newSignupCmd() *cobra.Command {
	var (
		user, pass, role          string
		email, parentName, parent string
		age                       int
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Create an account. Children (role user) need --parent-name,
--parent-contact and --age; therapists need --email and cannot log in
until an admin approves them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"username": user,
				"password": pass,
				"role":     role,
			}
			if email != "" {
				req["email"] = email
			}
			if parentName != "" {
				req["parent_name"] = parentName
			}
			if parent != "" {
				req["parent_contact"] = parent
			}
			if age > 0 {
				req["child_age"] = age
			}

			var result response.User
			if err := client.Post(cmd.Context(), "/auth/signup", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().StringVar(&role, "role", "user", "Role: user, therapist")
	cmd.Flags().StringVar(&email, "email", "", "Email address (therapists)")
	cmd.Flags().StringVar(&parentName, "parent-name", "", "Parent name (children)")
	cmd.Flags().StringVar(&parent, "parent-contact", "", "10-digit parent phone number (children)")
	cmd.Flags().IntVar(&age, "age", 0, "Child age, 3 to 12 (children)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"username": user,
				"password": pass,
			}

			var result response.AuthResponse
			if err := client.Post(cmd.Context(), "/auth/login", req, &result); err != nil {
				return err
			}

			if err := cfg.SaveToken(result.Token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post(cmd.Context(), "/auth/logout", nil, nil); err != nil {
				return err
			}
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			output(cmd).PrintMessage("Logged out")
			return nil
		},
	}
}

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.User
			if err := client.Get(cmd.Context(), "/users/me", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
