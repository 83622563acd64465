// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rigrun-assist/internal/model"
	"github.com/jeranaias/rigrun-assist/internal/remote"
	"github.com/jeranaias/rigrun-assist/internal/upload"
	"github.com/jeranaias/rigrun-assist/internal/util"
)

// errUploadFailed is returned after the failure has already been printed.
var errUploadFailed = errors.New("upload failed")

func newUploadCommand(flags *globalFlags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "upload <path|->",
		Short: "Upload one file and print the server's reply",
		Long: `Upload one file and print the server's reply.

With "-" the file content is read from standard input and sent under the
name given by --name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := openSource(cmd.InOrStdin(), args[0], name)
			if err != nil {
				return fmt.Errorf("cannot select file: %w", err)
			}

			a, err := newApp(flags, false)
			if err != nil {
				return err
			}
			defer a.close()

			_, uploads := a.controllers()
			return uploadFile(cmd, uploads, file, IsStdoutTTY())
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "stdin.txt", `file name to send when reading "-"`)
	return cmd
}

// openSource returns a handle for path, or for all of stdin when path is "-".
func openSource(stdin io.Reader, path, name string) (model.FileHandle, error) {
	if path != "-" {
		return model.OpenLocalFile(util.ExpandHome(path))
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("--name must not be empty")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return model.NewMemoryFile(name, data), nil
}

// uploadFile selects file, sends it and prints the final status line. With
// showProgress the percentage is redrawn in place while bytes go out.
func uploadFile(cmd *cobra.Command, uploads *upload.Controller, file model.FileHandle, showProgress bool) error {
	out := cmd.OutOrStdout()

	if err := uploads.SelectFile(file); err != nil {
		return err
	}

	if showProgress {
		uploads.SetChangeCallback(func(task model.UploadTask) {
			if task.Status == model.UploadUploading {
				printProgress(out, task)
			}
		})
	}

	err := uploads.Upload(cmd.Context())
	if showProgress {
		fmt.Fprint(out, "\r\033[K")
	}

	task := uploads.Task()
	fmt.Fprintln(out, task.StatusText())
	if task.Status == model.UploadFailed {
		if err != nil && remote.KindOf(err) != remote.KindUnknown {
			fmt.Fprintln(cmd.ErrOrStderr(), remote.UserMessage(err))
		}
		return errUploadFailed
	}
	return err
}

func printProgress(out io.Writer, task model.UploadTask) {
	if task.Total <= 0 {
		fmt.Fprintf(out, "\r%s %d bytes", task.StatusText(), task.Sent)
		return
	}
	fmt.Fprintf(out, "\r%s %3.0f%%", task.StatusText(), task.Fraction()*100)
}
