package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fulmenhq/gofulmen/errors"
)

// exitCodes are the semantic foundry codes this tool exits with.
var exitCodes = []foundry.ExitCode{
	foundry.ExitFailure,
	foundry.ExitConfigInvalid,
	foundry.ExitFileNotFound,
	foundry.ExitExternalServiceUnavailable,
}

// ExitWithCode exits the program with a semantic foundry exit code and logs the error.
// This helper ensures consistent error logging with exit code metadata before exiting.
//
// Parameters:
//   - logger: The logger to use for error output (can be nil for early failures)
//   - exitCode: The foundry exit code constant (e.g., foundry.ExitConfigInvalid)
//   - msg: Human-readable error message
//   - err: The underlying error (can be nil)
func ExitWithCode(logger *logging.Logger, exitCode foundry.ExitCode, msg string, err error) {
	// Get exit code metadata from foundry catalog
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		// Fallback if we can't get exit code info (should never happen)
		fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		os.Exit(int(exitCode))
	}

	if logger != nil {
		// Log error with exit code metadata
		fields := []zap.Field{
			zap.Int("exit_code", info.Code),
			zap.String("exit_name", info.Name),
			zap.String("exit_description", info.Description),
			zap.String("exit_category", info.Category),
		}
		extra, logErr := envelopeFields(err)
		fields = append(fields, extra...)
		fields = append(fields, zap.Error(logErr))
		logger.Error(msg, fields...)
	} else {
		// Fall back to stderr if no logger available
		writeFatalStderr(msg, err)
		fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)
	}

	// Exit with semantic code
	os.Exit(info.Code)
}

// ExitWithCodeStderr is a variant that writes to stderr without a logger.
// Use this for early failures before logger initialization.
//
// Parameters:
//   - exitCode: The foundry exit code constant
//   - msg: Human-readable error message
//   - err: The underlying error (can be nil)
func ExitWithCodeStderr(exitCode foundry.ExitCode, msg string, err error) {
	info, ok := foundry.GetExitCodeInfo(exitCode)
	if !ok {
		// Fallback if we can't get exit code info
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %s: %v (exit code: %d)\n", msg, err, exitCode)
		} else {
			fmt.Fprintf(os.Stderr, "FATAL: %s (exit code: %d)\n", msg, exitCode)
		}
		os.Exit(int(exitCode))
	}

	writeFatalStderr(msg, err)
	fmt.Fprintf(os.Stderr, "Exit Code: %d (%s) - %s\n", info.Code, info.Name, info.Description)

	os.Exit(info.Code)
}

// envelopeFields extracts structured fields from an ErrorEnvelope and picks
// the underlying error to log in its place, when one is wrapped.
func envelopeFields(err error) ([]zap.Field, error) {
	envelope, ok := err.(*errors.ErrorEnvelope)
	if !ok {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("error_code", envelope.Code),
		zap.String("error_message", envelope.Message),
		zap.String("correlation_id", envelope.CorrelationID),
		zap.String("trace_id", envelope.TraceID),
	}
	if envelope.Context != nil {
		fields = append(fields, zap.Any("error_context", envelope.Context))
	}
	if envelope.Original != nil {
		if originalErr, ok := envelope.Original.(error); ok {
			err = originalErr // Log the underlying error
		}
	}
	return fields, err
}

func writeFatalStderr(msg string, err error) {
	if err == nil {
		fmt.Fprintf(os.Stderr, "FATAL: %s\n", msg)
		return
	}

	if envelope, ok := err.(*errors.ErrorEnvelope); ok {
		fmt.Fprintf(os.Stderr, "FATAL: %s [%s]: %v (correlation: %s, trace: %s)\n",
			msg, envelope.Code, envelope.Message, envelope.CorrelationID, envelope.TraceID)
		if envelope.Original != nil {
			if originalErr, ok := envelope.Original.(error); ok {
				fmt.Fprintf(os.Stderr, "Underlying error: %v\n", originalErr)
			}
		}
		return
	}

	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", msg, err)
}

var exitCmd = &cobra.Command{
	Use:   "exit",
	Short: "Explain the exit codes this tool uses",
}

var exitListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the semantic exit codes",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Exit codes:")
		fmt.Printf("%4d  %-32s %s\n", 0, "success", "Command completed normally")
		for _, code := range exitCodes {
			info, ok := foundry.GetExitCodeInfo(code)
			if !ok {
				continue
			}
			fmt.Printf("%4d  %-32s %s\n", info.Code, info.Name, info.Description)
		}
		return nil
	},
}

var exitExplainCmd = &cobra.Command{
	Use:   "explain <code>",
	Short: "Explain a single exit code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return fmt.Errorf("exit code must be a number, got %q", args[0])
		}
		if value == 0 {
			fmt.Println("0 (success): Command completed normally")
			return nil
		}

		info, ok := foundry.GetExitCodeInfo(foundry.ExitCode(value))
		if !ok {
			return fmt.Errorf("unknown exit code %d", value)
		}
		fmt.Printf("%d (%s): %s\n", info.Code, info.Name, info.Description)
		fmt.Printf("Category: %s\n", info.Category)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exitCmd)
	exitCmd.AddCommand(exitListCmd)
	exitCmd.AddCommand(exitExplainCmd)
}
