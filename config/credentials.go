package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jpalmerr/homeworkbot/homework"
)

// Required environment variables.
const (
	EnvPracticumToken = "PRACTICUM_TOKEN"
	EnvTelegramToken  = "TELEGRAM_TOKEN"
	EnvTelegramChatID = "TELEGRAM_CHAT_ID"
)

// DefaultEnvFile is read when present; its absence is not an error.
const DefaultEnvFile = ".env"

// Credentials are the secrets the bot needs. They are read once at startup.
type Credentials struct {
	PracticumToken string
	TelegramToken  string
	TelegramChatID string
}

// LoadCredentials seeds the environment from envFile (variables already set
// win) and reads the required variables.
//
// A missing [DefaultEnvFile] is ignored; any other env file must exist. An
// empty envFile skips the file entirely.
//
// Returns a [homework.KindConfigMissing] error naming the first absent or
// empty variable, checked in the order PRACTICUM_TOKEN, TELEGRAM_TOKEN,
// TELEGRAM_CHAT_ID.
func LoadCredentials(envFile string) (Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !(envFile == DefaultEnvFile && errors.Is(err, fs.ErrNotExist)) {
				return Credentials{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
			}
		}
	}
	return CredentialsFromEnv(os.LookupEnv)
}

// CredentialsFromEnv reads the required variables through lookup.
func CredentialsFromEnv(lookup func(string) (string, bool)) (Credentials, error) {
	values := make(map[string]string, 3)
	for _, name := range []string{EnvPracticumToken, EnvTelegramToken, EnvTelegramChatID} {
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			return Credentials{}, homework.MissingConfig(name)
		}
		values[name] = v
	}

	return Credentials{
		PracticumToken: values[EnvPracticumToken],
		TelegramToken:  values[EnvTelegramToken],
		TelegramChatID: values[EnvTelegramChatID],
	}, nil
}
