package downloader

import "github.com/musegrab/musegrab/grab/service"

// trackRun carries the resolved placement of one track through the pipeline.
// It is assembled by the traversal that discovered the track and passed by
// value, so sibling tracks can never observe each other's mutations.
type trackRun struct {
	module  service.Module
	trackID string
	extra   service.Params

	// meta is the prefetched track metadata; nil makes the pipeline fetch it.
	meta *service.TrackMetadata

	// album is set when the track is placed with album layout and tags.
	album *service.AlbumMetadata

	// folder is the destination directory, template the filename pattern.
	folder   string
	template string

	// position and total override metadata numbering for playlist entries.
	position int
	total    int

	// batch marks multi-track operations, which are paced and report
	// per-track failures without aborting siblings.
	batch bool

	// expectArtist, when set, skips the track unless its artist list
	// includes this name. Artist traversal sets it under the
	// ignore-different-artists policy.
	expectArtist string

	// coverPath is the shared resolved cover for sibling tracks; empty
	// means the pipeline resolves one itself.
	coverPath string

	// sideFiles enables per-track extras (description, external and
	// animated covers) for tracks not covered by entity-level extras.
	sideFiles bool
}
