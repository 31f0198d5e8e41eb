package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pulse-social/pulse/internal/httputil"
	"github.com/pulse-social/pulse/internal/model"
	"github.com/pulse-social/pulse/internal/service"
	"github.com/pulse-social/pulse/internal/transport/http/middleware"
)

type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
	}
}

// Follow handles POST /users/{id}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteInvalidArgument(w, "Invalid user ID")
		return
	}

	if err := h.followService.Follow(r.Context(), followerID, followingID); err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteInvalidArgument(w, "Cannot follow yourself")
		case errors.Is(err, model.ErrUserNotFound):
			httputil.WriteNotFound(w, "User not found")
		case errors.Is(err, model.ErrAlreadyFollowing):
			httputil.WriteConflict(w, "Already following this user")
		default:
			log.Printf("[ERROR] Follow handler: follower=%d following=%d err=%v", followerID, followingID, err)
			httputil.WriteInternalError(w, "Failed to follow user")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Unfollow handles DELETE /users/{id}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	followingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteInvalidArgument(w, "Invalid user ID")
		return
	}

	if err := h.followService.Unfollow(r.Context(), followerID, followingID); err != nil {
		switch {
		case errors.Is(err, model.ErrCannotFollowSelf):
			httputil.WriteInvalidArgument(w, "Cannot unfollow yourself")
		case errors.Is(err, model.ErrNotFollowing):
			httputil.WriteNotFound(w, "Not following this user")
		default:
			log.Printf("[ERROR] Unfollow handler: follower=%d following=%d err=%v", followerID, followingID, err)
			httputil.WriteInternalError(w, "Failed to unfollow user")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetFollowers handles GET /users/{id}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteInvalidArgument(w, "Invalid user ID")
		return
	}

	limit, offset := paginationParams(r)

	resp, err := h.followService.GetFollowers(r.Context(), userID, limit, offset)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] Get followers handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to list followers")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
