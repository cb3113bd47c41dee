package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/jypelle/ledmsg/apimodel"
	"github.com/jypelle/ledmsg/internal/frame"
	"github.com/jypelle/ledmsg/internal/srv/config"
	"github.com/jypelle/ledmsg/internal/srv/event"
	"github.com/jypelle/ledmsg/internal/tool"
	"github.com/sirupsen/logrus"
	"image"
	_ "image/png"
	"io"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"time"
)

// Frames are 288 characters; anything much bigger is not a frame.
const maxFrameBodySize = 64 * 1024

const maxImageBodySize = 4 * 1024 * 1024

type Api struct {
	eventChannel chan event.ApiEvent

	router    *mux.Router
	apiRouter *mux.Router
	server    *http.Server
	handler   http.Handler
	upgrader  websocket.Upgrader

	config     *config.ServerConfig
	charDevice *CharDevice
	status     func() apimodel.Status
}

func NewApi(config *config.ServerConfig, charDevice *CharDevice, status func() apimodel.Status) *Api {
	api := Api{
		config:       config,
		charDevice:   charDevice,
		status:       status,
		eventChannel: make(chan event.ApiEvent),
		upgrader:     websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}

	api.router = mux.NewRouter().StrictSlash(false)

	// API Routes
	api.apiRouter = api.router.PathPrefix("/api").Subrouter()
	api.apiRouter.NotFoundHandler = http.HandlerFunc(ErrorNotFoundAction)
	api.apiRouter.MethodNotAllowedHandler = http.HandlerFunc(ErrorMethodNotAllowedAction)

	// Auth middleware
	api.apiRouter.Use(
		func(handler http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer func() {
					if rec := recover(); rec != nil {
						logrus.Warningf("recovered from panic : [%v] - stack trace : \n [%s]", rec, debug.Stack())
						strMessage := fmt.Sprintf("%v", rec)
						GlobalErrorAction(w, strMessage, http.StatusInternalServerError)
					}
				}()

				// Check API Key, browsers cannot set headers on websockets
				apiKey := r.Header.Get("x-api-key")
				if apiKey == "" {
					apiKey = r.URL.Query().Get("api_key")
				}
				if apiKey != config.ServerParam.ApiParam.ApiKey {
					ErrorStatusAction(w, r, http.StatusForbidden)
					return
				}

				logrus.Debugf("PATH: %s %s", r.Host, r.URL.Path)

				handler.ServeHTTP(w, r)
			})
		})

	// Create server check endpoint
	api.apiRouter.HandleFunc("/is_alive",
		func(w http.ResponseWriter, r *http.Request) {
			ErrorStatusAction(w, r, http.StatusOK)
		}).Methods("GET")
	api.apiRouter.HandleFunc("/frame", api.writeFrameAction).Methods("POST")
	api.apiRouter.HandleFunc("/frame/ack",
		func(w http.ResponseWriter, r *http.Request) {
			writeJson(w, apimodel.FrameAck{Message: api.charDevice.Read()})
		}).Methods("GET")
	api.apiRouter.HandleFunc("/message",
		func(w http.ResponseWriter, r *http.Request) {
			var message apimodel.Message
			if err := json.NewDecoder(io.LimitReader(r.Body, maxFrameBodySize)).Decode(&message); err != nil {
				apimodel.WrongParametersErrorMessage.SendError(w)
				return
			}
			api.sendEvent(w, r, event.ApiEventMessageData{Text: message.Text})
		}).Methods("POST")
	api.apiRouter.HandleFunc("/image",
		func(w http.ResponseWriter, r *http.Request) {
			img, _, err := image.Decode(io.LimitReader(r.Body, maxImageBodySize))
			if err != nil {
				GlobalErrorAction(w, fmt.Sprintf("unable to decode image: %v", err), http.StatusBadRequest)
				return
			}
			api.sendEvent(w, r, event.ApiEventImageData{Image: img})
		}).Methods("POST")
	api.apiRouter.HandleFunc("/pattern/{kind}/{index}",
		func(w http.ResponseWriter, r *http.Request) {
			vars := mux.Vars(r)
			kind, ok := vars["kind"]
			if !ok {
				ErrorStatusAction(w, r, http.StatusBadRequest)
				return
			}
			index, err := strconv.ParseInt(vars["index"], 10, 0)
			if err != nil {
				ErrorStatusAction(w, r, http.StatusBadRequest)
				return
			}
			api.sendEvent(w, r, event.ApiEventPatternData{Kind: frame.PatternKind(kind), Index: int(index)})
		}).Methods("POST")
	api.apiRouter.HandleFunc("/status",
		func(w http.ResponseWriter, r *http.Request) {
			writeJson(w, api.status())
		}).Methods("GET")
	api.apiRouter.HandleFunc("/ws", api.websocketAction).Methods("GET")

	// Tell the browser that it's OK for JS to communicate with the server
	headersOk := handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "X-Api-Key"})
	originsOk := handlers.AllowedOrigins([]string{"*"})
	methodsOk := handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})

	api.handler = handlers.CompressHandler(handlers.CORS(originsOk, headersOk, methodsOk)(api.router))

	api.server = &http.Server{
		Addr:         ":" + strconv.FormatInt(config.ServerParam.ApiParam.SslPort, 10),
		Handler:      api.handler,
		ReadTimeout:  time.Second * 240,
		WriteTimeout: time.Second * 240,
		IdleTimeout:  time.Second * 240,
	}

	return &api
}

// Start serves the API in the background, over TLS with a self-signed
// certificate generated on first run unless TLS is disabled.
func (d *Api) Start() error {
	logrus.Infof("Start api device")

	if d.config.ServerParam.ApiParam.Tls {
		if err := d.ensureCertificate(); err != nil {
			return err
		}
	}

	go func() {
		var err error
		if d.config.ServerParam.ApiParam.Tls {
			err = d.server.ListenAndServeTLS(d.selfSignedCertFilename(), d.selfSignedKeyFilename())
		} else {
			err = d.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Error(err)
		}
	}()
	return nil
}

func (d *Api) ensureCertificate() error {
	existServerCert, err := tool.IsFileExists(d.selfSignedCertFilename())
	if err != nil {
		return fmt.Errorf("unable to access %s: %w", d.selfSignedCertFilename(), err)
	}

	existServerKey, err := tool.IsFileExists(d.selfSignedKeyFilename())
	if err != nil {
		return fmt.Errorf("unable to access %s: %w", d.selfSignedKeyFilename(), err)
	}

	if !existServerCert || !existServerKey {
		logrus.Info("Missing cert and key files, trying to generate them...")
		err = tool.GenerateTlsCertificate(
			"jypelle",
			"Ledmsg Server",
			d.selfSignedKeyFilename(),
			d.selfSignedCertFilename(),
			[]string{})
		if err != nil {
			return fmt.Errorf("unable to generate cert and key files: %w", err)
		}
		logrus.Info("Self-signed cert and key files generated")
	}
	return nil
}

func (d *Api) StopSendingEvent() {
	logrus.Infof("Stop api device")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		logrus.Warnf("Unable to shutdown api server: %v", err)
	}
}

func (d *Api) EventChannel() chan event.ApiEvent {
	return d.eventChannel
}

// Handler is the complete http handler of the API, middlewares included.
func (d *Api) Handler() http.Handler {
	return d.handler
}

func (d *Api) writeFrameAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBodySize))
	if err != nil {
		apimodel.WrongParametersErrorMessage.SendError(w)
		return
	}

	consumed, errorMessage := d.writeFrame(r.Context(), body)
	if errorMessage != nil {
		errorMessage.SendError(w)
		return
	}
	writeJson(w, apimodel.FrameWriteResult{Consumed: consumed})
}

// writeFrame runs one open/write/close session on the character device.
func (d *Api) writeFrame(ctx context.Context, payload []byte) (int, *apimodel.ErrorMessage) {
	ctx, cancel := context.WithTimeout(ctx, d.config.ServerParam.ApiParam.WriteTimeout())
	defer cancel()

	d.charDevice.Open()
	defer d.charDevice.Close()

	consumed, err := d.charDevice.Write(ctx, payload)
	if err != nil {
		return 0, writeErrorMessage(err)
	}
	return consumed, nil
}

func writeErrorMessage(err error) *apimodel.ErrorMessage {
	switch {
	case errors.Is(err, frame.ErrInsufficientData), errors.Is(err, frame.ErrInvalidHex):
		return &apimodel.ErrorMessage{ErrStatusCode: http.StatusBadRequest, ErrMessage: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		errorMessage := apimodel.ScannerBusyErrorMessage
		return &errorMessage
	}
	return &apimodel.ErrorMessage{ErrStatusCode: http.StatusInternalServerError, ErrMessage: err.Error()}
}

// sendEvent forwards a request to the event loop and waits for its answer.
func (d *Api) sendEvent(w http.ResponseWriter, r *http.Request, data interface{}) {
	result := make(chan error, 1)
	select {
	case d.eventChannel <- event.ApiEvent{Result: result, Data: data}:
	case <-r.Context().Done():
		ErrorStatusAction(w, r, http.StatusServiceUnavailable)
		return
	}

	var err error
	select {
	case err = <-result:
	case <-r.Context().Done():
		ErrorStatusAction(w, r, http.StatusServiceUnavailable)
		return
	}

	switch {
	case err == nil:
		ErrorStatusAction(w, r, http.StatusOK)
	case errors.Is(err, frame.ErrInvalidPattern):
		GlobalErrorAction(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		apimodel.ScannerBusyErrorMessage.SendError(w)
	default:
		GlobalErrorAction(w, err.Error(), http.StatusInternalServerError)
	}
}

// websocketAction treats every incoming message as a frame and answers each
// one with the device acknowledgement or the error.
func (d *Api) websocketAction(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Debugf("Websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBodySize)

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logrus.Debugf("Websocket closed: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		var reply apimodel.WsReply
		consumed, errorMessage := d.writeFrame(r.Context(), payload)
		if errorMessage != nil {
			reply.Error = errorMessage
		} else {
			reply.Consumed = consumed
			reply.Message = d.charDevice.Read()
		}
		if err := conn.WriteJSON(reply); err != nil {
			logrus.Debugf("Websocket write failed: %v", err)
			return
		}
	}
}

func (d *Api) selfSignedKeyFilename() string {
	return filepath.Join(d.config.ConfigDir, "key.pem")
}

func (d *Api) selfSignedCertFilename() string {
	return filepath.Join(d.config.ConfigDir, "cert.pem")
}

func writeJson(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Unable to encode response: %v", err)
	}
}

func ErrorNotFoundAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusNotFound)
}

func ErrorMethodNotAllowedAction(w http.ResponseWriter, r *http.Request) {
	ErrorStatusAction(w, r, http.StatusMethodNotAllowed)
}

func ErrorStatusAction(w http.ResponseWriter, r *http.Request, status int) {
	ErrorMessageAction(w, "", status)
}

func GlobalErrorAction(w http.ResponseWriter, message string, status int) {
	ErrorMessageAction(w, message, status)
}

func ErrorMessageAction(w http.ResponseWriter, title string, status int) {
	errorMessage := &apimodel.ErrorMessage{
		ErrStatusCode: status,
		ErrMessage:    title,
	}

	if title == "" {
		switch status {
		case http.StatusOK:
			errorMessage.ErrMessage = "Ok"
		case http.StatusNotFound:
			errorMessage.ErrMessage = "Page not found"
		case http.StatusMethodNotAllowed:
			errorMessage.ErrMessage = "Method not allowed"
		case http.StatusForbidden:
			errorMessage.ErrMessage = "Forbidden"
		case http.StatusServiceUnavailable:
			errorMessage.ErrMessage = "Service unavailable"
		case http.StatusBadRequest:
			errorMessage.ErrMessage = "Bad request"
		default:
			errorMessage.ErrMessage = "Internal error"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorMessage)
}
