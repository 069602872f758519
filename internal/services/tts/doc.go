// Package tts wraps piper for narration synthesis.
package tts
