package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"rgit-go/internal/model"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// passphraseEnv lets scripts supply the key passphrase without a terminal.
const passphraseEnv = "RGIT_PASSPHRASE"

func promptPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pw), nil
}

// passphraseFromEnvOrPrompt is the passphrase source for reading encrypted
// snapshots.
func passphraseFromEnvOrPrompt() (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	return promptPassword(os.Stderr, "Enter passphrase: ")
}

// readNewPassphrase asks for a passphrase twice.
func readNewPassphrase(w io.Writer) (string, error) {
	if p := os.Getenv(passphraseEnv); p != "" {
		return p, nil
	}
	first, err := promptPassword(w, "New passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := promptPassword(w, "Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases do not match")
	}
	return first, nil
}

var blockTypeAliases = map[string]model.BlockType{
	"personal":   model.BlockPersonalInfo,
	"experience": model.BlockExperience,
	"education":  model.BlockEducation,
	"skills":     model.BlockSkillGroup,
	"skill":      model.BlockSkillGroup,
	"project":    model.BlockProject,
	"container":  model.BlockContainer,
}

// parseBlockType accepts a block type or one of its short aliases.
func parseBlockType(s string) (model.BlockType, error) {
	if t, ok := blockTypeAliases[strings.ToLower(s)]; ok {
		return t, nil
	}
	if t := model.BlockType(s); t.Valid() {
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", model.ErrInvalidBlockType, s)
}

// parseFields turns key=value arguments into a content map. A value may be
// empty to clear a field.
func parseFields(args []string) (map[string]string, error) {
	fields := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: want key=value", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

// parsePadding accepts one value for all sides or four values in
// top,right,bottom,left order.
func parsePadding(s string) ([4]int, error) {
	var out [4]int
	parts := strings.Split(s, ",")
	if len(parts) != 1 && len(parts) != 4 {
		return out, fmt.Errorf("invalid padding %q: want N or TOP,RIGHT,BOTTOM,LEFT", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return out, fmt.Errorf("invalid padding %q: %w", s, err)
		}
		out[i] = n
	}
	if len(parts) == 1 {
		out = [4]int{out[0], out[0], out[0], out[0]}
	}
	return out, nil
}
