package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/client/supabase"
	"github.com/dmitrijs2005/gophchat/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

const notConfiguredHint = "Sign-in is not configured. Set SUPABASE_URL and SUPABASE_ANON_KEY, " +
	"or type 'skip' to continue without an account."

// oauthProviders are the providers offered by the oauth command.
var oauthProviders = []string{"google", "github"}

var errUnknownProvider = errors.New("unknown oauth provider")

// requireAccounts prints the configuration hint when no auth provider is wired.
func (a *App) requireAccounts() error {
	if a.accounts == nil {
		fmt.Fprintln(a.out, notConfiguredHint)
		return common.ErrNotConfigured
	}
	return nil
}

// Login prompts for an email and password and signs in. The auth state
// follows through the provider's SIGNED_IN event.
func (a *App) Login(ctx context.Context) error {
	if err := a.requireAccounts(); err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := supabase.ValidateSignIn(email, string(password)); err != nil {
		return err
	}

	u, err := a.accounts.SignInWithPassword(ctx, email, string(password))
	if err != nil {
		a.logger.Warn(ctx, "sign in failed", "err", err)
		return fmt.Errorf("sign in: %w", err)
	}
	fmt.Fprintf(a.out, "Signed in as %s. Type a message, or /help.\n", displayName(u))
	return nil
}

// SignUp collects the sign-up form, validates it locally and creates the
// account. Projects that require email confirmation do not sign in.
func (a *App) SignUp(ctx context.Context) error {
	if err := a.requireAccounts(); err != nil {
		return err
	}

	var f supabase.SignUpForm
	var err error
	if f.FullName, err = getSimpleText(a.reader, "Enter full name", a.out); err != nil {
		return err
	}
	if f.Email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	confirm, err := getPassword(a.out, "Confirm password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)
	f.Password, f.ConfirmPassword = string(password), string(confirm)

	if err := supabase.ValidateSignUp(f); err != nil {
		return err
	}

	u, signedIn, err := a.accounts.SignUp(ctx, f.Email, f.Password, strings.TrimSpace(f.FullName))
	if err != nil {
		a.logger.Warn(ctx, "sign up failed", "err", err)
		return fmt.Errorf("sign up: %w", err)
	}
	if signedIn {
		fmt.Fprintf(a.out, "Welcome, %s!\n", displayName(u))
		return nil
	}
	fmt.Fprintf(a.out, "Check %s to confirm your account, then log in.\n", f.Email)
	return nil
}

// ResetPassword asks the provider to email a recovery link.
func (a *App) ResetPassword(ctx context.Context) error {
	if err := a.requireAccounts(); err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := supabase.ValidateEmail(email); err != nil {
		return err
	}
	if err := a.accounts.RequestPasswordReset(ctx, email); err != nil {
		return fmt.Errorf("password reset: %w", err)
	}
	fmt.Fprintln(a.out, "Password reset email sent.")
	return nil
}

// OAuth starts a provider sign-in and prints the authorization URL. The
// flow is completed by Callback with the URL the browser lands on.
func (a *App) OAuth(ctx context.Context, provider string) error {
	if err := a.requireAccounts(); err != nil {
		return err
	}

	provider = strings.ToLower(strings.TrimSpace(provider))
	known := false
	for _, p := range oauthProviders {
		known = known || p == provider
	}
	if !known {
		return fmt.Errorf("%w %q (use %s)", errUnknownProvider, provider, strings.Join(oauthProviders, " or "))
	}

	u, err := a.accounts.SignInWithOAuth(ctx, provider)
	if err != nil {
		return fmt.Errorf("oauth: %w", err)
	}
	fmt.Fprintln(a.out, "Open this URL in your browser:")
	fmt.Fprintln(a.out, u)
	fmt.Fprintln(a.out, "Then run: callback <the URL you were redirected to>")
	return nil
}

// Callback completes an OAuth sign-in with the redirect URL or bare code.
func (a *App) Callback(ctx context.Context, input string) error {
	if err := a.requireAccounts(); err != nil {
		return err
	}
	if strings.TrimSpace(input) == "" {
		return errors.New("usage: callback <url-or-code>")
	}

	u, err := a.accounts.ExchangeCode(ctx, input)
	if err != nil {
		a.logger.Warn(ctx, "oauth exchange failed", "err", err)
		return fmt.Errorf("oauth: %w", err)
	}
	fmt.Fprintf(a.out, "Signed in as %s. Type a message, or /help.\n", displayName(u))
	return nil
}

// Skip enters skip-auth mode as the test user. A failure to remember the
// choice for later runs is reported but the mode still applies.
func (a *App) Skip(ctx context.Context) error {
	err := a.auth.SkipAuthentication(ctx)
	fmt.Fprintln(a.out, "Continuing without an account (skip-auth mode). Type a message, or /help.")
	if err != nil {
		return fmt.Errorf("skip-auth mode will not persist: %w", err)
	}
	return nil
}

// Logout signs out. The chat view resets when the auth state changes.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.SignOut(ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}
