package agent

// Side-channel markers the final response may embed. They are inert
// substrings here; the presentation layer turns them into download or
// interactive affordances.
const (
	MarkerResumeDownload      = "[[resume_download]]"
	MarkerCoverLetterDownload = "[[cover_letter_download]]"
	MarkerJobResults          = "[[job_results]]"
)
