package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"mailassist/internal/util"
)

// issueToken 用 jwt.secret 为 subject 签发 bearer token 并写到 w
func issueToken(w io.Writer, secret, subject string, ttl time.Duration) error {
	if secret == "" {
		return errors.New("jwt.secret is not configured, auth is disabled")
	}
	if strings.TrimSpace(subject) == "" {
		return errors.New("token subject is empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", ttl)
	}

	token, err := util.GenerateJWT(subject, secret, ttl)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
