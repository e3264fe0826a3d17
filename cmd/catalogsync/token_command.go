// Copyright (c) 2026 Ikusare. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/ikusare/internal/platform/constants"
	"github.com/taibuivan/ikusare/internal/platform/sec"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var operator string
	var role string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the sync triggers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.JWTPrivKeyPath == "" {
				return errors.New("JWT_PRIVATE_KEY_PATH is not set")
			}
			if !sec.UserRole(role).Valid() {
				return fmt.Errorf("unknown role %q", role)
			}

			tokens, err := sec.LoadTokenService(cfg.JWTPrivKeyPath, "", constants.AuthIssuer)
			if err != nil {
				return err
			}
			token, err := tokens.GenerateAccessToken(operator, sec.UserRole(role), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&operator, "operator", "", "Operator name recorded in the token")
	cmd.Flags().StringVar(&role, "role", string(sec.RoleOperator), "Role: admin, operator or viewer")
	cmd.Flags().DurationVar(&ttl, "ttl", constants.OperatorTokenTTL, "Token lifetime")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
