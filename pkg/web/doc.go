// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package web contains HTTP request and client configurations.
HTTPConfig embeds both of them, and it is the only structure intended to be used as part of a plugin's configuration.
Every plugin that talks HTTP should use it, so that all of them share the same set of options.
*/
package web
