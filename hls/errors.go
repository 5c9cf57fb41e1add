package hls

import (
	"errors"
	"fmt"
)

var (
	ErrNoPlaylistURL = errors.New("no playlist URL found")
	ErrNoSegments    = errors.New("no segments found in playlist")
	ErrNestedMaster  = errors.New("variant playlist is itself a master playlist")
	ErrEncrypted     = errors.New("encrypted playlists are not supported")
)

// ResolutionError means no media playlist URL could be located for a source URL.
type ResolutionError struct {
	URL string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve playlist from %s: %v", e.URL, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// PlaylistError means a playlist could not be fetched, could not be parsed, or did not list any segments.
type PlaylistError struct {
	URL string
	Err error
}

func (e *PlaylistError) Error() string {
	return fmt.Sprintf("playlist %s: %v", e.URL, e.Err)
}

func (e *PlaylistError) Unwrap() error {
	return e.Err
}
