package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/jwebster45206/passage-engine/pkg/story"
)

// StoryValidator runs the engine's load-time checks plus authoring conventions:
// snake_case ids and variable names, reachability, and conditions on variables nothing
// ever sets.
type StoryValidator struct {
	errors   []string
	warnings []string
}

func (v *StoryValidator) validateFile(filename string) error {
	v.errors = nil
	v.warnings = nil

	format, err := story.FormatFromPath(filename)
	if err != nil {
		return err
	}

	storyID := story.IDFromPath(filename)
	if !isValidStoryFilename(storyID) {
		return fmt.Errorf("story filename '%s' must be lowercase snake_case (e.g., my_story.json, not my-story.json or MyStory.json)", filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	s, err := story.ParseStrict(data, format)
	if err != nil {
		return fmt.Errorf("file %s: %w", filename, err)
	}

	v.validateStory(s)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *StoryValidator) validateStory(s *story.Story) {
	if strings.TrimSpace(s.Title) == "" {
		v.addWarning("story has no title")
	}

	for name := range s.Defaults {
		v.validateVarName("default variable", name)
	}

	// Variables that some choice or the defaults can give a value
	assigned := make(map[string]bool)
	for name := range s.InitialVars() {
		assigned[name] = true
	}

	for _, id := range s.PassageIDs() {
		v.validateIDFormat("passage ID", id)
		p := s.Passages[id]
		for i, c := range p.Choices {
			where := fmt.Sprintf("passage %s choice %d", id, i)
			for name := range c.Set {
				v.validateVarName(where+" set", name)
				assigned[name] = true
			}
			for name := range c.Delta {
				v.validateVarName(where+" delta", name)
				assigned[name] = true
			}
			if c.If != nil {
				for _, name := range c.If.Names() {
					v.validateVarName(where+" condition", name)
				}
			}
		}
	}

	for _, id := range s.PassageIDs() {
		for i, c := range s.Passages[id].Choices {
			if c.If == nil {
				continue
			}
			for _, name := range c.If.Names() {
				if !assigned[name] {
					v.addWarning(fmt.Sprintf("passage %s choice %d depends on '%s', which nothing sets; the choice may never show", id, i, name))
				}
			}
		}
	}

	for _, id := range s.Unreachable() {
		v.addWarning(fmt.Sprintf("passage %s is unreachable from %s", id, s.Start))
	}

	slices.Sort(v.errors)
}

func (v *StoryValidator) validateVarName(context, name string) {
	if !isValidVariableName(name) {
		v.addError(fmt.Sprintf("%s has invalid variable name '%s' - should be lowercase snake_case", context, name))
	}
}

func (v *StoryValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *StoryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

func (v *StoryValidator) addWarning(msg string) {
	v.warnings = append(v.warnings, msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validVarRegex      = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidVariableName(name string) bool {
	return validVarRegex.MatchString(name)
}

func isValidStoryFilename(name string) bool {
	// Allow 'x.' prefix for experimental stories
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
