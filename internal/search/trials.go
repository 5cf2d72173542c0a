package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/agenthands/beacon/internal/config"
	"github.com/agenthands/beacon/internal/core/common"
	"github.com/agenthands/beacon/internal/core/model"
)

const (
	// maxLeafChars bounds free-text study fields kept on the event.
	maxLeafChars = 10000

	studyURLPrefix = "https://clinicaltrials.gov/study/"
	conditionURI   = "clinicaltrials:condition/"
	sponsorURI     = "clinicaltrials:sponsor/"
)

// Trials queries the ClinicalTrials.gov v2 studies endpoint. Query.ConceptURIs
// carry condition names; several are OR-ed into one query.
type Trials struct {
	baseURL  string
	pageSize int
	http     *http.Client
}

func NewTrials(cfg config.TrialsConfig) *Trials {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &Trials{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: pageSize,
		http:     &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

type study struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID         string `json:"nctId"`
			BriefTitle    string `json:"briefTitle"`
			OfficialTitle string `json:"officialTitle"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus        string `json:"overallStatus"`
			LastUpdateSubmitDate string `json:"lastUpdateSubmitDate"`
		} `json:"statusModule"`
		DescriptionModule struct {
			BriefSummary        string `json:"briefSummary"`
			DetailedDescription string `json:"detailedDescription"`
		} `json:"descriptionModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		DesignModule struct {
			Phases []string `json:"phases"`
		} `json:"designModule"`
		SponsorCollaboratorsModule struct {
			LeadSponsor struct {
				Name string `json:"name"`
			} `json:"leadSponsor"`
		} `json:"sponsorCollaboratorsModule"`
	} `json:"protocolSection"`
}

type studiesPage struct {
	Studies       []study `json:"studies"`
	NextPageToken string  `json:"nextPageToken"`
}

func (c *Trials) Search(ctx context.Context, q Query) ([]model.RawEvent, error) {
	params := url.Values{}
	params.Set("query.cond", strings.Join(q.ConceptURIs, " OR "))
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	if !q.Start.IsZero() {
		end := "MAX"
		if !q.End.IsZero() {
			end = model.FormatDay(q.End)
		}
		params.Set("filter.advanced", fmt.Sprintf("AREA[protocolSection.statusModule.lastUpdateSubmitDate]RANGE[%s, %s]", model.FormatDay(q.Start), end))
	}

	var all []model.RawEvent
	for {
		page, err := c.fetchPage(ctx, params)
		if err != nil {
			return nil, err
		}
		if page == nil {
			break
		}
		for _, s := range page.Studies {
			if s.ProtocolSection.IdentificationModule.NCTID == "" {
				continue
			}
			all = append(all, studyEvent(s))
		}
		if page.NextPageToken == "" {
			break
		}
		params.Set("pageToken", page.NextPageToken)
	}
	return all, nil
}

func (c *Trials) fetchPage(ctx context.Context, params url.Values) (*studiesPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/studies?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build studies request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("studies request: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("clinicaltrials", resp); err != nil {
		return nil, err
	}

	var page studiesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		slog.WarnContext(ctx, "undecodable studies response, treating as empty", "error", err)
		return nil, nil
	}
	return &page, nil
}

func studyEvent(s study) model.RawEvent {
	p := s.ProtocolSection
	id := p.IdentificationModule.NCTID

	title := p.IdentificationModule.OfficialTitle
	if title == "" {
		title = p.IdentificationModule.BriefTitle
	}

	description := p.DescriptionModule.DetailedDescription
	if description == "" {
		description = p.DescriptionModule.BriefSummary
	}
	status := p.StatusModule.OverallStatus
	if len(p.DesignModule.Phases) > 0 {
		status = strings.Join(p.DesignModule.Phases, ", ") + ", " + status
	}
	summary := common.Truncate(description, maxLeafChars)
	if status != "" {
		summary = fmt.Sprintf("[%s] %s", status, summary)
	}

	var concepts []model.ConceptRef
	for _, cond := range p.ConditionsModule.Conditions {
		uri := conditionURI + strings.ToLower(cond)
		concepts = append(concepts, model.ConceptRef{URI: uri, Concept: &model.Concept{URI: uri, Name: cond, Type: "condition"}})
	}
	if sponsor := p.SponsorCollaboratorsModule.LeadSponsor.Name; sponsor != "" {
		uri := sponsorURI + strings.ToLower(sponsor)
		concepts = append(concepts, model.ConceptRef{URI: uri, Concept: &model.Concept{URI: uri, Name: sponsor, Type: "org"}})
	}

	return model.RawEvent{
		URI:       id,
		Title:     map[string]string{model.LangEnglish: common.Truncate(title, maxLeafChars)},
		Summary:   map[string]string{model.LangEnglish: summary},
		EventDate: p.StatusModule.LastUpdateSubmitDate,
		Concepts:  concepts,
		Source:    model.SourceTrials,
		URL:       studyURLPrefix + id,
	}
}

// TrialMatches reports whether a stored trial belongs to one of the queried
// conditions: either it lists the condition or its text mentions it.
func TrialMatches(e model.Event, conditions []string) bool {
	if e.Source != model.SourceTrials {
		return false
	}
	text := strings.ToLower(e.EnglishTitle() + " " + e.EnglishSummary())
	for _, cond := range conditions {
		lower := strings.ToLower(cond)
		if e.HasConcept(conditionURI+lower) || strings.Contains(text, lower) {
			return true
		}
	}
	return false
}
