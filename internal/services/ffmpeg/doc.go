// Package ffmpeg wraps the ffmpeg invocations for background video
// processing: resolving background references, cropping to the 9:16 vertical
// target, and the optional speed ramp effect.
package ffmpeg
