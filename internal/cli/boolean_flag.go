package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	booleanFlagTypeName     = "bool"
	booleanFlagImplicitTrue = "true"
	booleanFlagLiteralList  = "true, false, yes, no, on, off, 1, 0"
	longFlagPrefix          = "--"
	flagTerminator          = "--"
)

var booleanFlagLiterals = map[string]bool{
	"true": true, "t": true, "1": true, "yes": true, "y": true, "on": true,
	"false": false, "f": false, "0": false, "no": false, "n": false, "off": false,
}

// separateBooleanWords are the values taken from the argument that follows a bare boolean
// flag. Short literals such as "y" or "1" only count with "=", since they are plausible
// ruleset paths.
var separateBooleanWords = map[string]struct{}{
	"true": {}, "false": {}, "yes": {}, "no": {}, "on": {}, "off": {},
}

// parseBooleanLiteral accepts the literals of booleanFlagLiterals in any case.
// An empty input means the flag was given without a value.
func parseBooleanLiteral(input string) (bool, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return true, true
	}
	parsed, known := booleanFlagLiterals[normalized]
	return parsed, known
}

// booleanFlagValue is a pflag.Value that understands yes/no and on/off besides true/false.
type booleanFlagValue struct {
	target *bool
	name   string
}

func (value *booleanFlagValue) Set(input string) error {
	parsed, known := parseBooleanLiteral(input)
	if !known {
		return fmt.Errorf("invalid boolean value %q for --%s; accepted values: %s", input, value.name, booleanFlagLiteralList)
	}
	*value.target = parsed
	return nil
}

func (value *booleanFlagValue) String() string {
	if value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

// registerBooleanFlag adds a permissive boolean flag that may be given bare, as --name=value
// or, after normalizeBooleanFlagArguments, as "--name value".
func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	*target = defaultValue
	flagSet.Var(&booleanFlagValue{target: target, name: name}, name, usage)
	registered := flagSet.Lookup(name)
	registered.DefValue = strconv.FormatBool(defaultValue)
	registered.NoOptDefVal = booleanFlagImplicitTrue
}

// normalizeBooleanFlagArguments joins "--name value" into "--name=value" for every boolean
// flag of command and its subcommands when value is one of separateBooleanWords. Any other
// value stays a separate argument so it is still read as a positional path.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	booleanFlags := map[string]struct{}{}
	collectBooleanFlagNames(command, booleanFlags)
	if len(booleanFlags) == 0 {
		return arguments
	}

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		argument := arguments[index]
		if argument == flagTerminator {
			return append(normalized, arguments[index:]...)
		}
		flagName, isLongFlag := strings.CutPrefix(argument, longFlagPrefix)
		_, isBooleanFlag := booleanFlags[flagName]
		if isLongFlag && isBooleanFlag && !strings.Contains(flagName, "=") && index+1 < len(arguments) {
			nextArgument := arguments[index+1]
			if _, known := separateBooleanWords[strings.ToLower(strings.TrimSpace(nextArgument))]; known {
				normalized = append(normalized, longFlagPrefix+flagName+"="+nextArgument)
				index++
				continue
			}
		}
		normalized = append(normalized, argument)
	}
	return normalized
}

func collectBooleanFlagNames(command *cobra.Command, target map[string]struct{}) {
	collect := func(flag *pflag.Flag) {
		if flag.Value.Type() == booleanFlagTypeName {
			target[flag.Name] = struct{}{}
		}
	}
	command.PersistentFlags().VisitAll(collect)
	command.Flags().VisitAll(collect)
	for _, child := range command.Commands() {
		collectBooleanFlagNames(child, target)
	}
}
