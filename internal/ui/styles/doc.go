// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides colors and Lip Gloss styles for the terminal UI.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. Theme bundles the styles the chat view uses and records the
terminal's color profile so markdown rendering can match it.

# Usage

	theme := styles.NewTheme()
	line := theme.UserLabel.Render("You")
	status := theme.Error.Render(failure.Message)
*/
package styles
