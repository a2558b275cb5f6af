package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/odling/odling-api/src/lib"
	"github.com/odling/odling-api/src/models"
	"github.com/odling/odling-api/src/services"
)

type FollowController struct {
	follows *services.FollowService
}

func NewFollowController(follows *services.FollowService) *FollowController {
	return &FollowController{follows: follows}
}

// followError maps follow workflow errors onto HTTP responses
func followError(op string, err error) error {
	switch {
	case errors.Is(err, services.ErrCannotFollowSelf):
		return lib.BadRequest("You cannot follow yourself")
	case errors.Is(err, services.ErrUserNotFound):
		return lib.NotFound("User not found")
	case errors.Is(err, services.ErrAlreadyFollowing):
		return lib.Conflict("Already following this user")
	case errors.Is(err, services.ErrRequestAlreadySent):
		return lib.Conflict("Follow request already sent")
	case errors.Is(err, services.ErrNoPendingRequest):
		return lib.NotFound("No pending request")
	case errors.Is(err, services.ErrRequestNotFound):
		return lib.NotFound("Request not found")
	case errors.Is(err, services.ErrRequestHandled):
		return lib.BadRequest("Request already handled")
	case errors.Is(err, services.ErrNotFollowing):
		return lib.NotFound("Not following")
	case errors.Is(err, services.ErrInvalidAction):
		return lib.BadRequest("Action must be accept or reject")
	}
	return lib.ServerError(op, err)
}

func requestDtos(requests []models.FollowRequest) []models.FollowRequestDto {
	dtos := make([]models.FollowRequestDto, 0, len(requests))
	for _, r := range requests {
		dtos = append(dtos, r.ToDto())
	}
	return dtos
}

func userSummaries(users []models.User) []models.UserDto {
	dtos := make([]models.UserDto, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, u.Summary())
	}
	return dtos
}

// SendFollowRequest asks the user in the path to accept the caller as a follower
func (h *FollowController) SendFollowRequest(c *fiber.Ctx) error {
	targetID, ok := lib.ParamID(c, "userId")
	if !ok {
		return lib.BadRequest("Invalid user id")
	}

	request, err := h.follows.SendRequest(c.UserContext(), lib.CurrentUser(c).ID, targetID)
	if err != nil {
		return followError("sendFollowRequest", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Follow request sent",
		"request": request.ToDto(),
	})
}

// CancelFollowRequest withdraws the caller's pending request to the user in the path
func (h *FollowController) CancelFollowRequest(c *fiber.Ctx) error {
	targetID, ok := lib.ParamID(c, "userId")
	if !ok {
		return lib.BadRequest("Invalid user id")
	}

	if err := h.follows.CancelRequest(c.UserContext(), lib.CurrentUser(c).ID, targetID); err != nil {
		return followError("cancelFollowRequest", err)
	}
	return c.JSON(lib.MessageResponse("Follow request cancelled"))
}

func (h *FollowController) GetIncomingRequests(c *fiber.Ctx) error {
	requests, err := h.follows.IncomingRequests(c.UserContext(), lib.CurrentUser(c).ID)
	if err != nil {
		return followError("getIncomingRequests", err)
	}
	return c.JSON(fiber.Map{"requests": requestDtos(requests)})
}

func (h *FollowController) GetOutgoingRequests(c *fiber.Ctx) error {
	requests, err := h.follows.OutgoingRequests(c.UserContext(), lib.CurrentUser(c).ID)
	if err != nil {
		return followError("getOutgoingRequests", err)
	}
	return c.JSON(fiber.Map{"requests": requestDtos(requests)})
}

// RespondToRequest accepts or rejects a pending request addressed to the caller
func (h *FollowController) RespondToRequest(c *fiber.Ctx) error {
	requestID, ok := lib.ParamID(c, "id")
	if !ok {
		return lib.BadRequest("Invalid request id")
	}

	var req struct {
		Action services.RespondAction `json:"action"`
	}
	if err := c.BodyParser(&req); err != nil {
		return lib.BadRequest("Invalid request body")
	}

	result, err := h.follows.Respond(c.UserContext(), lib.CurrentUser(c).ID, requestID, req.Action)
	if err != nil {
		return followError("respondToRequest", err)
	}

	response := fiber.Map{
		"message": "Follow request rejected",
		"request": result.Request.ToDto(),
	}
	if result.Follow != nil {
		response["message"] = "Follow request accepted"
		response["follow"] = result.Follow
	}
	return c.JSON(response)
}

// Unfollow removes the caller's follow edge to the user in the path
func (h *FollowController) Unfollow(c *fiber.Ctx) error {
	followedID, ok := lib.ParamID(c, "followedId")
	if !ok {
		return lib.BadRequest("Invalid user id")
	}

	if err := h.follows.Unfollow(c.UserContext(), lib.CurrentUser(c).ID, followedID); err != nil {
		return followError("unfollow", err)
	}
	return c.JSON(lib.MessageResponse("Unfollowed successfully"))
}

func (h *FollowController) GetFollowers(c *fiber.Ctx) error {
	userID, ok := lib.ParamID(c, "userId")
	if !ok {
		return lib.BadRequest("Invalid user id")
	}

	users, err := h.follows.Followers(c.UserContext(), userID)
	if err != nil {
		return followError("getFollowers", err)
	}
	return c.JSON(fiber.Map{"users": userSummaries(users)})
}

func (h *FollowController) GetFollowing(c *fiber.Ctx) error {
	userID, ok := lib.ParamID(c, "userId")
	if !ok {
		return lib.BadRequest("Invalid user id")
	}

	users, err := h.follows.Following(c.UserContext(), userID)
	if err != nil {
		return followError("getFollowing", err)
	}
	return c.JSON(fiber.Map{"users": userSummaries(users)})
}

// GetFollowStatus describes the caller's relationship to the user in the path
func (h *FollowController) GetFollowStatus(c *fiber.Ctx) error {
	otherID, ok := lib.ParamID(c, "userId")
	if !ok {
		return lib.BadRequest("Invalid user id")
	}
	user := lib.CurrentUser(c)
	if otherID == user.ID {
		return lib.BadRequest("You cannot follow yourself")
	}

	status, requestID, err := h.follows.Status(c.UserContext(), user.ID, otherID)
	if err != nil {
		return followError("getFollowStatus", err)
	}

	response := fiber.Map{"status": status}
	if status == models.FollowStatusIncoming {
		response["requestId"] = requestID
	}
	return c.JSON(response)
}
