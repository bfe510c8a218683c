// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 IFA Contributors

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// prompter reads operator input. Passwords are read without echo when input
// is an interactive terminal and as plain lines otherwise.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
	tty int
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	p := &prompter{in: bufio.NewReader(in), out: out, tty: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = int(f.Fd())
	}
	return p
}

func (p *prompter) line(prompt string) (string, error) {
	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", oops.Code("INPUT_FAILED").With("prompt", strings.TrimSpace(prompt)).Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *prompter) password(prompt string) (string, error) {
	if p.tty < 0 {
		return p.line(prompt)
	}
	if _, err := fmt.Fprint(p.out, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(p.tty)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", oops.Code("INPUT_FAILED").With("prompt", strings.TrimSpace(prompt)).Wrap(err)
	}
	return string(pw), nil
}

// newPassword asks for a password twice and requires both entries to match.
func (p *prompter) newPassword(prompt string) (string, error) {
	first, err := p.password(prompt)
	if err != nil {
		return "", err
	}
	second, err := p.password("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", oops.Code("ACCOUNT_PASSWORD_MISMATCH").Errorf("passwords do not match")
	}
	return first, nil
}
