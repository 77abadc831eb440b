package strava

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	athleteActivitiesPath = "/athlete/activities"
	activitiesPath        = "/activities"

	// MaxPerPage is the largest page size the activities endpoint honours.
	MaxPerPage = 200
)

type ListActivitiesRequest struct {
	AccessToken string
	Page        int
	PerPage     int
}

// ListActivities returns one page of the authenticated athlete's activities,
// newest first. An empty slice marks the end of the list.
func (s *API) ListActivities(ctx context.Context, req ListActivitiesRequest) ([]SummaryActivity, error) {
	q := url.Values{
		"page":     {strconv.Itoa(req.Page)},
		"per_page": {strconv.Itoa(req.PerPage)},
	}
	u, err := url.Parse(s.baseURL + athleteActivitiesPath)
	if err != nil {
		return nil, err
	}
	u.RawQuery = q.Encode()
	request, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Authorization", "Bearer "+req.AccessToken)

	var response []SummaryActivity
	err = s.do(ctx, "list activities", request, http.StatusOK, &response)
	if err != nil {
		return nil, err
	}
	return response, nil
}

type GetActivityStreamsRequest struct {
	AccessToken string
	ID          int64
	Keys        []StreamType
}

// GetActivityStreams fetches the raw sample streams of an activity keyed by type.
// Streams the activity does not have are absent from the result.
func (s *API) GetActivityStreams(ctx context.Context, req GetActivityStreamsRequest) (*StreamSet, error) {
	keys := req.Keys
	if len(keys) == 0 {
		keys = []StreamType{StreamLatLng, StreamAltitude, StreamTime}
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	q := url.Values{
		"keys":        {strings.Join(names, ",")},
		"key_by_type": {"true"},
	}
	u, err := url.Parse(s.baseURL + activitiesPath + "/" + strconv.FormatInt(req.ID, 10) + "/streams")
	if err != nil {
		return nil, err
	}
	u.RawQuery = q.Encode()
	request, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Authorization", "Bearer "+req.AccessToken)

	var response StreamSet
	err = s.do(ctx, "get activity streams", request, http.StatusOK, &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}
