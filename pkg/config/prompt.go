package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoInput is returned by Prompter when the input ends before a valid
// answer was given.
var ErrNoInput = errors.New("no input")

// Prompter asks questions on w and reads answers from r.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(r), out: w}
}

// PositiveInt asks until a positive integer is entered.
func (p *Prompter) PositiveInt(text string) (int, error) {
	for {
		fmt.Fprintf(p.out, "%s ", text)
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return 0, err
			}
			return 0, ErrNoInput
		}
		n, err := strconv.Atoi(strings.TrimSpace(p.in.Text()))
		if err == nil && n > 0 {
			return n, nil
		}
		fmt.Fprintln(p.out, "Input must be a positive integer.")
		fmt.Fprintln(p.out)
	}
}

// FillGrid prompts for rows and cols that are not already set.
func (p *Prompter) FillGrid(c *Config) error {
	var err error
	if c.Rows < 1 {
		if c.Rows, err = p.PositiveInt("Number of rows?"); err != nil {
			return err
		}
	}
	if c.Cols < 1 {
		if c.Cols, err = p.PositiveInt("Number of columns?"); err != nil {
			return err
		}
	}
	return nil
}
