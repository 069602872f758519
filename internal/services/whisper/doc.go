// Package whisper wraps whisper transcription for subtitle generation.
package whisper
