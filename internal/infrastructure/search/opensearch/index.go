package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/openregulatory/licensure/internal/domain/licensing"
	"github.com/openregulatory/licensure/internal/infrastructure/monitoring/logging"
	"github.com/openregulatory/licensure/pkg/errors"
)

// licenseMapping is the index mapping for license documents.  Keyword fields
// back the facet filters; text fields back the free-text query.
const licenseMapping = `{
	"mappings": {
		"properties": {
			"license_id":                {"type": "keyword"},
			"licensee_id":               {"type": "keyword"},
			"is_privilege":              {"type": "boolean"},
			"compact":                   {"type": "keyword"},
			"jurisdiction":              {"type": "keyword"},
			"jurisdiction_name":         {"type": "text"},
			"license_type":              {"type": "text"},
			"license_type_abbreviation": {"type": "keyword"},
			"status":                    {"type": "keyword"},
			"status_description":        {"type": "text"},
			"expire_date":               {"type": "date", "format": "yyyy-MM-dd", "ignore_malformed": true}
		}
	}
}`

// licenseDocument is the indexed shape of a license.
type licenseDocument struct {
	LicenseID               string `json:"license_id"`
	LicenseeID              string `json:"licensee_id"`
	IsPrivilege             bool   `json:"is_privilege"`
	Compact                 string `json:"compact"`
	Jurisdiction            string `json:"jurisdiction"`
	JurisdictionName        string `json:"jurisdiction_name"`
	LicenseType             string `json:"license_type"`
	LicenseTypeAbbreviation string `json:"license_type_abbreviation"`
	Status                  string `json:"status"`
	StatusDescription       string `json:"status_description"`
	ExpireDate              string `json:"expire_date,omitempty"`
}

// LicenseIndex implements the domain search-index contract on OpenSearch.
type LicenseIndex struct {
	client   *Client
	resolver licensing.NameResolver
	index    string
	logger   logging.Logger
}

// NewLicenseIndex builds the index adapter.  indexPrefix namespaces the
// deployment; the index is "<prefix>-licenses".
func NewLicenseIndex(client *Client, resolver licensing.NameResolver, indexPrefix string, log logging.Logger) *LicenseIndex {
	if indexPrefix == "" {
		indexPrefix = "licensure"
	}
	return &LicenseIndex{
		client:   client,
		resolver: resolver,
		index:    indexPrefix + "-licenses",
		logger:   log,
	}
}

var _ licensing.SearchIndex = (*LicenseIndex)(nil)

// EnsureIndex creates the index with its mapping if it does not exist.
func (x *LicenseIndex) EnsureIndex(ctx context.Context) error {
	existsResp, err := opensearchapi.IndicesExistsRequest{Index: []string{x.index}}.Do(ctx, x.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "checking index existence")
	}
	defer existsResp.Body.Close()
	if existsResp.StatusCode == 200 {
		return nil
	}

	createResp, err := opensearchapi.IndicesCreateRequest{
		Index: x.index,
		Body:  strings.NewReader(licenseMapping),
	}.Do(ctx, x.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSearchError, "creating index")
	}
	defer createResp.Body.Close()
	if createResp.IsError() {
		return errors.Newf(errors.ErrCodeSearchError, "index creation returned status %d", createResp.StatusCode)
	}

	x.logger.Info("search index created", logging.String("index", x.index))
	return nil
}

// Index upserts a license document.
func (x *LicenseIndex) Index(ctx context.Context, lic *licensing.License) error {
	jurisdictionName, _ := x.resolver.JurisdictionName(lic.Jurisdiction)
	doc := licenseDocument{
		LicenseID:               lic.ID,
		LicenseeID:              lic.LicenseeID,
		IsPrivilege:             lic.IsPrivilege,
		Compact:                 lic.Compact,
		Jurisdiction:            lic.Jurisdiction,
		JurisdictionName:        jurisdictionName,
		LicenseType:             lic.LicenseType,
		LicenseTypeAbbreviation: lic.LicenseTypeAbbreviation,
		Status:                  string(lic.Status),
		StatusDescription:       lic.StatusDescription,
		ExpireDate:              lic.ExpireDate.String(),
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexingFailed, "encoding license document")
	}

	resp, err := opensearchapi.IndexRequest{
		Index:      x.index,
		DocumentID: lic.ID,
		Body:       bytes.NewReader(body),
	}.Do(ctx, x.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexingFailed, "indexing license")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return errors.Newf(errors.ErrCodeIndexingFailed, "indexing returned status %d", resp.StatusCode)
	}
	return nil
}

// Remove deletes a license document.  A missing document is not an error.
func (x *LicenseIndex) Remove(ctx context.Context, id string) error {
	resp, err := opensearchapi.DeleteRequest{
		Index:      x.index,
		DocumentID: id,
	}.Do(ctx, x.client.client)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIndexingFailed, "deleting license document")
	}
	defer resp.Body.Close()
	if resp.IsError() && resp.StatusCode != 404 {
		return errors.Newf(errors.ErrCodeIndexingFailed, "delete returned status %d", resp.StatusCode)
	}
	return nil
}

// Search runs the faceted query and returns hits with the match total.
func (x *LicenseIndex) Search(ctx context.Context, query licensing.SearchQuery) ([]licensing.SearchHit, int64, error) {
	body, err := json.Marshal(buildSearchBody(query))
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeSearchError, "encoding search query")
	}

	resp, err := opensearchapi.SearchRequest{
		Index: []string{x.index},
		Body:  bytes.NewReader(body),
	}.Do(ctx, x.client.client)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeSearchError, "executing search")
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, 0, errors.Newf(errors.ErrCodeSearchError, "search returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string          `json:"_id"`
				Score  float64         `json:"_score"`
				Source licenseDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeSearchError, "decoding search response")
	}

	hits := make([]licensing.SearchHit, len(parsed.Hits.Hits))
	for i, h := range parsed.Hits.Hits {
		hits[i] = licensing.SearchHit{
			LicenseID:  h.ID,
			LicenseeID: h.Source.LicenseeID,
			Score:      h.Score,
		}
	}
	return hits, parsed.Hits.Total.Value, nil
}

// buildSearchBody assembles the bool query: free text over the text fields,
// exact terms for the facets.
func buildSearchBody(query licensing.SearchQuery) map[string]interface{} {
	var must []interface{}
	var filter []interface{}

	if query.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query.Text,
				"fields": []string{"licensee_id", "license_type", "jurisdiction_name", "status_description"},
			},
		})
	}
	for field, value := range map[string]string{
		"compact":                   query.Compact,
		"jurisdiction":              query.Jurisdiction,
		"license_type_abbreviation": query.LicenseType,
	} {
		if value != "" {
			filter = append(filter, map[string]interface{}{
				"term": map[string]interface{}{field: value},
			})
		}
	}

	boolQuery := map[string]interface{}{}
	if len(must) > 0 {
		boolQuery["must"] = must
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}
	if len(boolQuery) == 0 {
		boolQuery["must"] = []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"from":  query.Page.Offset(),
		"size":  query.Page.PageSize,
		"sort":  []interface{}{"_score", map[string]interface{}{"license_id": "asc"}},
	}
}

// IndexName returns the fully-qualified index name for log lines and the
// reindex command.
func (x *LicenseIndex) IndexName() string { return x.index }
