// Package audio plays a sound when the bar switches to a finish or error
// message. It uses the beep library to decode WAV, OGG and MP3 files and
// caches decoded buffers, dropping them when the files change on disk.
package audio
