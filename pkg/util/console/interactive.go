package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

type InteractiveBool struct {
	Prompt  string
	Default bool
	// NonDefaultFlag is the flag to suggest passing to do the thing which isn't default when running inside a script
	NonDefaultFlag string
}

func (i InteractiveBool) Read() (bool, error) {
	defaults := "y/N"
	if i.Default {
		defaults = "Y/n"
	}
	for {
		fmt.Printf("%s (%s) ", i.Prompt, defaults)
		reader := bufio.NewReader(os.Stdin)
		text, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return false, fmt.Errorf("stdin is closed. If you're running in a script, you need to pass the '%s' option", i.NonDefaultFlag)
			}
			return false, err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "yes" || text == "y" {
			return true, nil
		}
		if text == "no" || text == "n" {
			return false, nil
		}
		if text == "" {
			return i.Default, nil
		}
		Warn("Please enter 'y' or 'n'")
	}
}
