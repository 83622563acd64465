// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload provides the file upload controller.
//
// The controller holds a single pending-file slot. Selecting a file
// replaces the previous one; uploading sends it to the upload endpoint and
// records the outcome. The file stays selected after a failure so the
// upload can be retried without choosing it again.
//
// # Key Types
//
//   - Controller: Upload slot and lifecycle
//   - Transfer: Token for one in-flight upload
//   - TransferResultMsg: Bubble Tea message carrying an upload result
//
// # Usage
//
//	ctrl := upload.NewController(client, upload.DefaultConfig())
//	file, err := model.OpenLocalFile("report.pdf")
//	if err != nil {
//	    return err
//	}
//	ctrl.SelectFile(file)
//	ctrl.Upload(ctx)
//	fmt.Println(ctrl.Task().StatusText())
package upload
