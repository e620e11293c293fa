package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/and161185/signator/internal/convert"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "signator")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "signator")
}

func tokenPath() string { return filepath.Join(cfgDir(), "token.json") }

func saveToken(tok string, exp time.Time) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(tokenFile{AccessToken: tok, ExpiresAt: exp}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(tokenPath(), b, 0o600)
}

func loadToken() (string, error) {
	b, err := os.ReadFile(tokenPath())
	if err != nil {
		return "", errors.New("no saved token (login required)")
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return "", err
	}
	if tf.AccessToken == "" || time.Now().After(tf.ExpiresAt) {
		return "", errors.New("no valid token (login required)")
	}
	return tf.AccessToken, nil
}

// tokenExpiry reads exp from an unverified token; the server already verified it.
func tokenExpiry(tok string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Now().Add(15 * time.Minute)
}

// ---- http ----

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server: %d %s", e.Status, e.Message)
}

func (a *app) do(ctx context.Context, method, path, token string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.addr()+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
		return nil, &apiError{Status: resp.StatusCode, Message: e.Error}
	}
	return resp, nil
}

func (a *app) callJSON(ctx context.Context, method, path, token string, in, out any) error {
	resp, err := a.do(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ---- commands ----

func newLoginCmd(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and save the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out struct {
				AccessToken string       `json:"accessToken"`
				ExpiresAt   time.Time    `json:"expiresAt"`
				User        convert.User `json:"user"`
			}
			in := map[string]string{"email": email, "password": password}
			if err := a.callJSON(cmd.Context(), http.MethodPost, "/api/auth/login", "", in, &out); err != nil {
				return err
			}
			exp := out.ExpiresAt
			if exp.IsZero() {
				exp = tokenExpiry(out.AccessToken)
			}
			if err := saveToken(out.AccessToken, exp); err != nil {
				return err
			}
			cmd.Printf("logged in as %s (%s)\n", out.User.Email, out.User.Role)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "u", "", "email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRequestsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "requests",
		Short: "List signing requests addressed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			var out []convert.SigningRequest
			if err := a.callJSON(cmd.Context(), http.MethodGet, "/api/signing-requests", token, nil, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newSignCmd(a *app) *cobra.Command {
	var in convert.SignRequest
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a document for a pending request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			var out convert.SignResponse
			if err := a.callJSON(cmd.Context(), http.MethodPost, "/api/documents/sign", token, in, &out); err != nil {
				return err
			}
			cmd.Printf("signed: %s\n%s%s\n", out.SignedDocumentID, a.addr(), out.PdfURL)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.RequestID, "request", "", "signing request id")
	f.StringVar(&in.DocID, "doc", "", "document id")
	f.StringVar(&in.UserName, "name", "", "signer display name")
	f.StringVar(&in.Signature, "signature", "", "typed signature")
	for _, n := range []string{"request", "doc", "name", "signature"} {
		_ = cmd.MarkFlagRequired(n)
	}
	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "download [document-id]",
		Short: "Download a document PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := loadToken()
			if err != nil {
				return err
			}
			resp, err := a.do(cmd.Context(), http.MethodGet, "/api/documents/"+url.PathEscape(args[0])+"/file", token, nil)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			_, err = io.Copy(w, resp.Body)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file ('-' or empty = stdout)")
	return cmd
}
