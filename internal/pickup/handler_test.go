package pickup_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/pickup"
	"github.com/transit241/port-logistics/internal/testutil"
	"github.com/transit241/port-logistics/internal/transport"
	"github.com/transit241/port-logistics/pkg/logger"
)

type stubService struct {
	uploaded []byte
	filename string
}

func (s *stubService) Create(_ context.Context, dto pickup.CreatePickupDTO) (*pickup.Pickup, error) {
	if dto.ShipmentID == "taken" {
		return nil, internal.ErrPickupAlreadyExists
	}
	return &pickup.Pickup{ID: 7, ShipmentID: dto.ShipmentID, ValidatorID: "agent-1", IdentityProofRef: dto.IdentityProofRef}, nil
}

func (s *stubService) Get(_ context.Context, id int64) (*pickup.Pickup, error) {
	if id != 7 {
		return nil, internal.ErrPickupNotFound
	}
	return &pickup.Pickup{ID: 7}, nil
}

func (s *stubService) GetByShipment(_ context.Context, shipmentID string) (*pickup.Pickup, error) {
	return &pickup.Pickup{ID: 7, ShipmentID: shipmentID}, nil
}

func (s *stubService) UploadIdentityProof(_ context.Context, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.uploaded = data
	s.filename = filename
	return "/media/identity-proofs/" + filename, nil
}

var _ = Describe("Pickup Handler", func() {
	var (
		stub    *stubService
		handler *pickup.Handler
	)

	BeforeEach(func() {
		stub = &stubService{}
		handler = pickup.NewHandler(transport.NewBaseHandler(logger.Discard()), stub, 1024)
	})

	multipartRequest := func(field, filename string, content []byte) *http.Request {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(field, filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = fw.Write(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(mw.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/uploads/identity-proof", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	It("creates a pickup with 201", func() {
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/pickups", strings.NewReader(`{"shipment_id":"s-1","identity_proof_ref":"proof.png"}`)))
		Expect(w.Code).To(Equal(http.StatusCreated))

		var body pickup.Pickup
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.ShipmentID).To(Equal("s-1"))
	})

	It("answers 409 for a shipment already picked up", func() {
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/pickups", strings.NewReader(`{"shipment_id":"taken","identity_proof_ref":"proof.png"}`)))
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodePickupAlreadyExists)))
	})

	It("parses the pickup id", func() {
		w := httptest.NewRecorder()
		handler.Get(w, testutil.WithURLParams(httptest.NewRequest(http.MethodGet, "/pickups/x", nil), "id", "x"))
		Expect(w.Code).To(Equal(http.StatusBadRequest))

		w = httptest.NewRecorder()
		handler.Get(w, testutil.WithURLParams(httptest.NewRequest(http.MethodGet, "/pickups/8", nil), "id", "8"))
		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("requires shipment_id when looking up by shipment", func() {
		w := httptest.NewRecorder()
		handler.GetByShipment(w, httptest.NewRequest(http.MethodGet, "/pickups", nil))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("accepts a multipart identity proof", func() {
		w := httptest.NewRecorder()
		handler.UploadIdentityProof(w, multipartRequest("file", "id.png", []byte("img")))
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(stub.uploaded).To(Equal([]byte("img")))

		var body pickup.UploadResponse
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body.URL).To(Equal("/media/identity-proofs/id.png"))
	})

	It("answers 400 when the file field is missing", func() {
		w := httptest.NewRecorder()
		handler.UploadIdentityProof(w, multipartRequest("document", "id.png", []byte("img")))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("answers 413 for oversized uploads", func() {
		w := httptest.NewRecorder()
		handler.UploadIdentityProof(w, multipartRequest("file", "id.png", bytes.Repeat([]byte("x"), 4096)))
		Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
	})
})
