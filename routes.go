package latitude

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

type router struct {
	base    *url.URL
	version string
}

func newRouter(baseURL, version string) (router, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return router{}, fmt.Errorf("base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return router{}, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	return router{base: u, version: version}, nil
}

func (r router) url(segments ...string) string {
	return r.base.JoinPath(append([]string{"api", r.version}, segments...)...).String()
}

func (r router) document(projectID int, versionUUID string, segments ...string) string {
	return r.url(append([]string{"projects", strconv.Itoa(projectID), "versions", versionUUID, "documents"}, segments...)...)
}

func (r router) run(projectID int, versionUUID string) string {
	return r.document(projectID, versionUUID, "run")
}

func (r router) logs(projectID int, versionUUID string) string {
	return r.document(projectID, versionUUID, "logs")
}

func (r router) prompt(projectID int, versionUUID, path string) string {
	return r.document(projectID, versionUUID, strings.Trim(path, "/"))
}

func (r router) conversation(uuid, action string) string {
	return r.url("conversations", uuid, action)
}

func (r router) toolResults() string {
	return r.url("tools", "results")
}
