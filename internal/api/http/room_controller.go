package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pion/webrtc/v3"

	"pairline/internal/api/http/converter"
	"pairline/internal/repository"
	"pairline/internal/service"
)

// RoomController serves the read-only REST surface. All mutation flows
// through the websocket boundary.
type RoomController struct {
	rooms       service.RoomInteractor
	stunServers []string
}

func NewRoomController(rooms service.RoomInteractor, stunServers []string) *RoomController {
	return &RoomController{
		rooms:       rooms,
		stunServers: stunServers,
	}
}

func (c *RoomController) GetRoom(ctx *gin.Context) {
	room, err := c.rooms.GetRoom(ctx.Request.Context(), ctx.Param("roomKey"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrRoomNotFound) {
			status = http.StatusNotFound
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"room": converter.RoomToApi(room)})
}

func (c *RoomController) ListRooms(ctx *gin.Context) {
	rooms, err := c.rooms.ListRooms(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	out := make([]*converter.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, converter.RoomToApi(room))
	}
	ctx.JSON(http.StatusOK, gin.H{"rooms": out})
}

// WebRTCConfig hands clients the ICE servers to use when negotiating.
func (c *RoomController) WebRTCConfig(ctx *gin.Context) {
	servers := make([]webrtc.ICEServer, 0, len(c.stunServers))
	for _, url := range c.stunServers {
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}
	ctx.JSON(http.StatusOK, gin.H{"ice_servers": servers})
}
