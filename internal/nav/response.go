package nav

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"navgate/internal/core/apperror"
)

// parseResponse loads the response body and rejects the two generic failure
// envelopes before the caller interprets domain data. Any envelope match is
// an immediate error carrying the embedded messages; a non-OK funcCode is an
// error even without an envelope.
func parseResponse(body []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, apperror.NewRemote("invalid XML in authority response").WithCause(err)
	}
	root := doc.Root()
	if root == nil {
		return nil, apperror.NewRemote("empty authority response")
	}

	switch root.Tag {
	case "GeneralErrorResponse":
		var errs []string
		for _, msg := range root.FindElements("//technicalValidationMessages") {
			errs = append(errs, findText(msg, "validationErrorCode")+": "+findText(msg, "message"))
		}
		if len(errs) == 0 {
			errs = append(errs, findText(root, "result/errorCode")+": "+findText(root, "result/message"))
		}
		return nil, apperror.NewRemote("authority reported a validation error").
			WithDetail("errors", errs)

	case "GeneralExceptionResponse":
		return nil, apperror.NewRemote("authority reported an exception").
			WithDetail("errors", []string{findText(root, "errorCode") + ": " + findText(root, "message")})
	}

	if funcCode := findText(root, "result/funcCode"); funcCode != "OK" {
		return nil, apperror.NewRemote(fmt.Sprintf("authority replied with non-OK funcCode: %s", funcCode))
	}

	return root, nil
}

func parseTokenExchange(root *etree.Element, replacementKey string, now time.Time) (Token, error) {
	encoded := findText(root, "encodedExchangeToken")
	if encoded == "" {
		return Token{}, apperror.NewRemote("missing exchange token in authority response")
	}

	encrypted, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Token{}, apperror.NewRemote("exchange token is not valid base64").WithCause(err)
	}
	decrypted, err := decryptExchangeToken(replacementKey, encrypted)
	if err != nil {
		return Token{}, apperror.NewRemote("could not decrypt exchange token").WithCause(err)
	}

	// A malformed validity is not fatal: assume the documented minimum.
	validUntil := now.Add(5 * time.Minute)
	if raw := findText(root, "tokenValidityTo"); raw != "" {
		if parsed, err := parseWireTime(raw); err == nil {
			validUntil = parsed
		}
	}

	return Token{Value: string(decrypted), ValidUntil: validUntil}, nil
}

func parseTransactionCode(root *etree.Element) (string, error) {
	code := findText(root, "transactionId")
	if code == "" {
		return "", apperror.NewRemote("authority did not return a transaction code")
	}
	return code, nil
}

func parseTransactionStatus(root *etree.Element, includesOriginal bool) (*TransactionStatus, error) {
	status := &TransactionStatus{
		AnnulmentStatus: findText(root, "processingResults/annulmentData/annulmentVerificationStatus"),
	}

	for _, resultXML := range root.FindElements("processingResults/processingResult") {
		result := ProcessingResult{
			Index:         findText(resultXML, "index"),
			InvoiceStatus: findText(resultXML, "invoiceStatus"),
		}
		for _, msg := range resultXML.FindElements("businessValidationMessages") {
			result.BusinessMessages = append(result.BusinessMessages, parseValidationMessage(msg))
		}
		for _, msg := range resultXML.FindElements("technicalValidationMessages") {
			result.TechnicalMessages = append(result.TechnicalMessages, parseValidationMessage(msg))
		}

		if includesOriginal {
			raw := findText(resultXML, "originalRequest")
			payload, err := base64.StdEncoding.DecodeString(raw)
			if err != nil {
				return nil, apperror.NewRemote("original request payload is not valid base64").WithCause(err)
			}
			result.OriginalPayload = payload
		}

		status.Results = append(status.Results, result)
	}

	return status, nil
}

func parseTransactionList(root *etree.Element) (*TransactionList, error) {
	list := &TransactionList{AvailablePages: 1}
	if pages, err := strconv.Atoi(findText(root, "transactionListResult/availablePage")); err == nil && pages > 0 {
		list.AvailablePages = pages
	}

	for _, txXML := range root.FindElements("transactionListResult/transaction") {
		item := TransactionListItem{
			TransactionCode: findText(txXML, "transactionId"),
			Annulment:       findText(txXML, "technicalAnnulment") == "true",
			Username:        findText(txXML, "insCusUser"),
			Source:          findText(txXML, "source"),
		}
		if t, err := parseWireTime(findText(txXML, "insDate")); err == nil {
			item.SendTime = t
		}
		list.Transactions = append(list.Transactions, item)
	}

	return list, nil
}

func parseValidationMessage(el *etree.Element) ValidationMessage {
	return ValidationMessage{
		ResultCode: findText(el, "validationResultCode"),
		ErrorCode:  findText(el, "validationErrorCode"),
		Message:    findText(el, "message"),
	}
}

// findText returns the trimmed text of the first element matching the path,
// or "" when absent. etree path selectors without a namespace prefix match
// any namespace, which keeps parsing robust against prefix variations.
func findText(el *etree.Element, path string) string {
	if found := el.FindElement(path); found != nil {
		return strings.TrimSpace(found.Text())
	}
	return ""
}

// parseWireTime accepts the timestamp shapes the authority emits: RFC3339
// with or without fractional seconds or zone suffix. Result is UTC.
func parseWireTime(raw string) (time.Time, error) {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000",
		"2006-01-02T15:04:05",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
