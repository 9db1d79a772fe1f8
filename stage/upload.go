package stage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/bendsql/bendsql-go/apiclient"
	"github.com/bendsql/bendsql-go/internal/dberrors"
	"github.com/bendsql/bendsql-go/protocol"
)

// PresignedResponse is the decoded result of `PRESIGN UPLOAD <stage>`: a
// single row of (method, headers, url).
type PresignedResponse struct {
	Method  string
	Headers http.Header
	URL     string
}

// GetPresignedUploadURL runs PRESIGN UPLOAD against loc and parses the
// single-row, three-column result the server returns. The headers column
// is a JSON object serialized as a string; gjson extracts it without a
// full struct unmarshal into an intermediate type.
func GetPresignedUploadURL(ctx context.Context, client *apiclient.Client, loc Location) (*PresignedResponse, error) {
	sql := fmt.Sprintf("PRESIGN UPLOAD %s", loc.String())
	resp, err := client.Query(ctx, &protocol.QueryRequest{SQL: sql})
	if err != nil {
		return nil, dberrors.Wrap(dberrors.Request, err, "presign upload %s", loc)
	}
	if len(resp.Data) != 1 || len(resp.Data[0]) != 3 {
		return nil, dberrors.New(dberrors.InvalidResponse, "presign upload %s: expected 1 row of 3 columns, got %d rows", loc, len(resp.Data))
	}

	row := resp.Data[0]
	method, _ := row[0].(string)
	headersBlob, _ := row[1].(string)
	url, _ := row[2].(string)
	if method == "" || url == "" {
		return nil, dberrors.New(dberrors.InvalidResponse, "presign upload %s: missing method or url", loc)
	}
	if method != http.MethodPut {
		return &PresignedResponse{Method: method, URL: url}, nil
	}

	h := http.Header{}
	gjson.Parse(headersBlob).ForEach(func(key, value gjson.Result) bool {
		h.Set(key.String(), value.String())
		return true
	})

	return &PresignedResponse{Method: method, Headers: h, URL: url}, nil
}

// putPresigned issues the presigned PUT once, streaming the body through an
// io.SectionReader over data. A failed PUT is returned as an error and is
// not retried.
func putPresigned(ctx context.Context, httpClient *http.Client, presigned *PresignedResponse, data io.ReaderAt, size int64) error {
	body := io.NewSectionReader(data, 0, size)
	req, err := http.NewRequestWithContext(ctx, presigned.Method, presigned.URL, body)
	if err != nil {
		return dberrors.Wrap(dberrors.Request, err, "build presigned upload request")
	}
	req.ContentLength = size
	for k, vals := range presigned.Headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return dberrors.Wrap(dberrors.Request, err, "presigned upload")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return dberrors.New(dberrors.Request, "presigned upload: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// putProxied uploads data through the warehouse's own /v1/upload_to_stage
// endpoint as a multipart form, for deployments where presigned URLs are
// disabled or the stage backend doesn't support them.
func putProxied(ctx context.Context, client *apiclient.Client, baseURL string, loc Location, data io.Reader, filename string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("upload", filename)
	if err != nil {
		return dberrors.Wrap(dberrors.IO, err, "build multipart body")
	}
	if _, err := io.Copy(part, data); err != nil {
		return dberrors.Wrap(dberrors.IO, err, "copy upload data into multipart body")
	}
	if err := w.Close(); err != nil {
		return dberrors.Wrap(dberrors.IO, err, "close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, baseURL+"/v1/upload_to_stage", &buf)
	if err != nil {
		return dberrors.Wrap(dberrors.Request, err, "build proxied upload request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-DATABEND-STAGE-NAME", loc.Name)
	req.SetBasicAuth(client.DSNUser(), client.DSNPassword())

	resp, err := client.HTTPClient().Do(req)
	if err != nil {
		return dberrors.Wrap(dberrors.Request, err, "proxied upload")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return dberrors.New(dberrors.Request, "proxied upload: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Upload writes data (size bytes, filename used only for the proxied path's
// multipart form) to loc. It uses a presigned PUT when the connection
// allows it, falling back to a proxied multipart PUT when presigned uploads
// are disabled or the server returns a method other than PUT.
func Upload(ctx context.Context, client *apiclient.Client, loc Location, data io.ReaderAt, size int64, filename string) error {
	if !client.PresignedURLDisabled() {
		presigned, err := GetPresignedUploadURL(ctx, client, loc)
		if err != nil {
			return err
		}
		if presigned.Method == http.MethodPut {
			return putPresigned(ctx, client.HTTPClient(), presigned, data, size)
		}
		client.Log.Debugf("stage: presign returned unrecognized method %q, falling back to proxied upload", presigned.Method)
	}
	return putProxied(ctx, client, client.BaseURL(), loc, io.NewSectionReader(data, 0, size), filename)
}
