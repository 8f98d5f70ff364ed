package clip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NanaAbabioh/testimony-app-backend/internal/cliptime"
)

type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusReviewing  Status = "reviewing"
	StatusLive       Status = "live"
	StatusHidden     Status = "hidden"
)

var statuses = map[Status]bool{
	StatusSubmitted:  true,
	StatusProcessing: true,
	StatusReviewing:  true,
	StatusLive:       true,
	StatusHidden:     true,
}

func ParseStatus(s string) (Status, bool) {
	st := Status(strings.TrimSpace(s))
	return st, statuses[st]
}

// Record is a clip with every legacy document field resolved to one name.
type Record struct {
	ID               string
	CategoryID       string
	Status           Status
	ServiceDate      string
	SavedCount       int64
	CreatedAt        time.Time
	VideoID          string
	Title            string
	TitleShort       string
	SummaryShort     string
	Episode          string
	StartSeconds     int
	EndSeconds       int
	ThumbURL         string
	ProcessedClipURL string
	ProcessedClipKey string
	Transcript       string
}

// Document keys. Older imports used other names for the same field; the
// alias lists are in lookup order and the first non-empty value wins.
const (
	keyVideoID          = "sourceVideoId"
	keyTitle            = "title"
	keyTitleShort       = "titleShort"
	keySummaryShort     = "summaryShort"
	keyEpisode          = "episode"
	keyStart            = "startTimeSeconds"
	keyEnd              = "endTimeSeconds"
	keyThumbURL         = "thumbUrl"
	keyProcessedClipURL = "processedClipUrl"
	keyProcessedClipKey = "processedClipKey"
	keyTranscript       = "transcript"
)

var (
	videoIDAliases    = []string{keyVideoID, "videoId", "video_id"}
	titleAliases      = []string{keyTitle, "fullTitle"}
	startAliases      = []string{keyStart, "startTime", "start_time"}
	endAliases        = []string{keyEnd, "endTime", "end_time"}
	thumbAliases      = []string{keyThumbURL, "thumbnailUrl", "thumbnail"}
	processedAliases  = []string{keyProcessedClipURL, "clipUrl"}
	transcriptAliases = []string{keyTranscript, "fullText"}
)

// VideoIDExpr is the SQL form of the video id alias lookup over a JSONB
// document column, for queries that match clips to a source video.
func VideoIDExpr(column string) string {
	parts := make([]string, len(videoIDAliases))
	for i, key := range videoIDAliases {
		parts[i] = fmt.Sprintf("NULLIF(BTRIM(%s->>'%s'), '')", column, key)
	}
	return "COALESCE(" + strings.Join(parts, ", ") + ")"
}

type document map[string]any

func decodeDocument(raw []byte) (document, error) {
	doc := document{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return doc, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode clip document: %w", err)
	}
	return doc, nil
}

func (d document) str(aliases ...string) string {
	for _, key := range aliases {
		if s, ok := d[key].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

// seconds resolves a time field that may be stored as a number or as
// "mm:ss"/"hh:mm:ss" text. Unparseable values read as 0 and surface later
// through timing validation.
func (d document) seconds(aliases ...string) int {
	for _, key := range aliases {
		v, ok := d[key]
		if !ok || v == nil {
			continue
		}
		if n, err := cliptime.ParseSeconds(v); err == nil {
			return n
		}
		return 0
	}
	return 0
}

// recordFromRow builds the canonical record from relational columns plus
// the JSONB document.
func recordFromRow(id string, categoryID *string, status string, serviceDate *string, savedCount int64, createdAt time.Time, raw []byte) (Record, error) {
	doc, err := decodeDocument(raw)
	if err != nil {
		return Record{}, fmt.Errorf("clip %s: %w", id, err)
	}
	rec := Record{
		ID:               id,
		Status:           Status(status),
		SavedCount:       savedCount,
		CreatedAt:        createdAt,
		VideoID:          doc.str(videoIDAliases...),
		Title:            doc.str(titleAliases...),
		TitleShort:       doc.str(keyTitleShort),
		SummaryShort:     doc.str(keySummaryShort),
		Episode:          doc.str(keyEpisode),
		StartSeconds:     doc.seconds(startAliases...),
		EndSeconds:       doc.seconds(endAliases...),
		ThumbURL:         doc.str(thumbAliases...),
		ProcessedClipURL: doc.str(processedAliases...),
		ProcessedClipKey: doc.str(keyProcessedClipKey),
		Transcript:       doc.str(transcriptAliases...),
	}
	if categoryID != nil {
		rec.CategoryID = *categoryID
	}
	if serviceDate != nil {
		rec.ServiceDate = *serviceDate
	}
	if rec.Status == "" {
		rec.Status = StatusSubmitted
	}
	return rec, nil
}

// FromDocument resolves a stored document on its own, for callers that only
// need the descriptive fields.
func FromDocument(id string, raw []byte) (Record, error) {
	return recordFromRow(id, nil, "", nil, 0, time.Time{}, raw)
}

// TitlePatch is merged into a stored document with `doc || $1::jsonb`.
func TitlePatch(titleShort, summaryShort string) ([]byte, error) {
	return json.Marshal(document{
		keyTitleShort:   titleShort,
		keySummaryShort: summaryShort,
	})
}

// ProcessedPatch records where the trimmed clip was uploaded.
func ProcessedPatch(objectKey string) ([]byte, error) {
	return json.Marshal(document{keyProcessedClipKey: objectKey})
}

// Document renders the descriptive fields under their canonical keys only.
func (r Record) Document() ([]byte, error) {
	doc := document{
		keyVideoID: r.VideoID,
		keyTitle:   r.Title,
		keyStart:   r.StartSeconds,
		keyEnd:     r.EndSeconds,
	}
	optional := map[string]string{
		keyTitleShort:       r.TitleShort,
		keySummaryShort:     r.SummaryShort,
		keyEpisode:          r.Episode,
		keyThumbURL:         r.ThumbURL,
		keyProcessedClipURL: r.ProcessedClipURL,
		keyProcessedClipKey: r.ProcessedClipKey,
		keyTranscript:       r.Transcript,
	}
	for k, v := range optional {
		if v != "" {
			doc[k] = v
		}
	}
	return json.Marshal(doc)
}

func (r Record) Timing() cliptime.Timing {
	return cliptime.Timing{Start: r.StartSeconds, End: r.EndSeconds}
}

func thumbnailFor(videoID string) string {
	if videoID == "" {
		return ""
	}
	return "https://i.ytimg.com/vi/" + videoID + "/hqdefault.jpg"
}

// Summary is the public listing view of a clip.
type Summary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	TitleShort       string `json:"titleShort,omitempty"`
	SummaryShort     string `json:"summaryShort,omitempty"`
	CategoryID       string `json:"categoryId,omitempty"`
	VideoID          string `json:"videoId"`
	StartTimeSeconds int    `json:"startTimeSeconds"`
	EndTimeSeconds   int    `json:"endTimeSeconds"`
	DurationSeconds  int    `json:"durationSeconds"`
	Episode          string `json:"episode,omitempty"`
	ServiceDate      string `json:"serviceDate,omitempty"`
	ThumbURL         string `json:"thumbUrl"`
	ProcessedClipURL string `json:"processedClipUrl,omitempty"`
	SavedCount       int64  `json:"savedCount"`
	Status           Status `json:"status"`
	CreatedAt        string `json:"createdAt"`
}

func (r Record) Summary() Summary {
	thumb := r.ThumbURL
	if thumb == "" {
		thumb = thumbnailFor(r.VideoID)
	}
	return Summary{
		ID:               r.ID,
		Title:            r.Title,
		TitleShort:       r.TitleShort,
		SummaryShort:     r.SummaryShort,
		CategoryID:       r.CategoryID,
		VideoID:          r.VideoID,
		StartTimeSeconds: r.StartSeconds,
		EndTimeSeconds:   r.EndSeconds,
		DurationSeconds:  r.EndSeconds - r.StartSeconds,
		Episode:          r.Episode,
		ServiceDate:      r.ServiceDate,
		ThumbURL:         thumb,
		ProcessedClipURL: r.ProcessedClipURL,
		SavedCount:       r.SavedCount,
		Status:           r.Status,
		CreatedAt:        r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
