// Package remux finalizes captured containers: it detects recordings that
// are really MPEG transport streams, repackages them in place with ffmpeg,
// and prunes old recordings per retention policy.
package remux
