// internal/handler/campaign_handler.go
package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/marvo-backend/internal/errors"
	"github.com/unclebandit/marvo-backend/internal/model"
	"github.com/unclebandit/marvo-backend/internal/repository"
	"github.com/unclebandit/marvo-backend/internal/service"
)

// CampaignHandler holds the dependencies for campaign-related HTTP handlers
type CampaignHandler struct {
	Repo      repository.CampaignRepositoryInterface
	StateRepo repository.RecipientStateRepositoryInterface
	Launcher  *service.LaunchService
}

func NewCampaignHandler(
	repo repository.CampaignRepositoryInterface,
	stateRepo repository.RecipientStateRepositoryInterface,
	launcher *service.LaunchService,
) *CampaignHandler {
	return &CampaignHandler{
		Repo:      repo,
		StateRepo: stateRepo,
		Launcher:  launcher,
	}
}

// CreateCampaignHandler handles creating a new campaign
func (h *CampaignHandler) CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name        string `json:"name"`
		Channel     string `json:"channel"`
		BaitMessage string `json:"bait_message"`
		MainMessage string `json:"main_message"`
		FollowUps   []struct {
			Content      string `json:"content"`
			DelayMinutes int    `json:"delay_minutes"`
		} `json:"follow_ups"`
		ProspectListIDs []int `json:"prospect_list_ids"`
		DailyLimit      *int  `json:"daily_limit,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := validateCampaignPayload(payload.Name, payload.Channel, payload.BaitMessage, payload.MainMessage); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	for i, f := range payload.FollowUps {
		if f.Content == "" {
			http.Error(w, fmt.Sprintf("follow-up %d has empty content", i), http.StatusBadRequest)
			return
		}
		if f.DelayMinutes < 0 {
			http.Error(w, fmt.Sprintf("follow-up %d has negative delay", i), http.StatusBadRequest)
			return
		}
	}

	campaign := &model.Campaign{
		Name:            payload.Name,
		Channel:         payload.Channel,
		Status:          model.CampaignStatusDraft,
		BaitMessage:     payload.BaitMessage,
		MainMessage:     payload.MainMessage,
		ProspectListIDs: payload.ProspectListIDs,
		DailyLimit:      payload.DailyLimit,
	}
	for _, f := range payload.FollowUps {
		campaign.FollowUps = append(campaign.FollowUps, model.FollowUp{
			Content:      f.Content,
			DelayMinutes: f.DelayMinutes,
		})
	}

	if err := h.Repo.Create(r.Context(), campaign); err != nil {
		http.Error(w, "failed to create campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(campaign)
}

func validateCampaignPayload(name, channel, bait, main string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if !model.ValidChannel(channel) {
		return fmt.Errorf("unsupported channel: %s", channel)
	}
	if bait == "" {
		return fmt.Errorf("bait_message is required")
	}
	if main == "" {
		return fmt.Errorf("main_message is required")
	}
	return nil
}

// ListCampaignsHandler returns a paginated list of campaigns
func (h *CampaignHandler) ListCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	pageStr := r.URL.Query().Get("page")
	pageSizeStr := r.URL.Query().Get("page_size")
	page := 1
	pageSize := 10

	if pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if pageSizeStr != "" {
		if ps, err := strconv.Atoi(pageSizeStr); err == nil && ps > 0 {
			pageSize = ps
		}
	}

	channel := r.URL.Query().Get("channel")
	status := r.URL.Query().Get("status")

	campaigns, total, err := h.Repo.ListCampaigns(r.Context(), (page-1)*pageSize, pageSize, channel, status)
	if err != nil {
		http.Error(w, "failed to fetch campaigns: "+err.Error(), http.StatusInternalServerError)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	response := map[string]interface{}{
		"data": campaigns,
		"pagination": map[string]int{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetCampaignHandler returns one campaign with its recipient-state stats
func (h *CampaignHandler) GetCampaignHandler(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	campaign, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		if appErrors.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "failed to fetch campaign: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stats, err := h.StateRepo.GetCampaignStats(r.Context(), id)
	if err != nil {
		http.Error(w, "failed to fetch campaign stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"campaign": campaign,
		"stats":    stats,
	})
}

// RunCampaignHandler launches a campaign: creates recipient states and
// queues the bait messages
func (h *CampaignHandler) RunCampaignHandler(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "campaignId")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid campaign id", http.StatusBadRequest)
		return
	}

	result, err := h.Launcher.RunCampaign(r.Context(), id)
	if err != nil {
		if appErrors.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		log.Printf("[API] ❌ run campaign %d failed: %v", id, err)
		status := http.StatusInternalServerError
		if result != nil {
			// partial launch: states exist and some baits are queued
			status = http.StatusAccepted
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":  err.Error(),
			"result": result,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
