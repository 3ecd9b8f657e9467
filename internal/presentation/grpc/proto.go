package grpc

// proto.go hand-writes the service descriptor for microfinance.ledger.v1.LedgerService.
// Messages are the application dto structs, encoded by the JSON codec.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/microfinance-ledger/internal/application/dto"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "microfinance.ledger.v1.LedgerService"

// SweepStatusesRequest triggers a status sweep. It carries no fields.
type SweepStatusesRequest struct{}

// EndorsementList wraps a list reply.
type EndorsementList struct {
	Endorsements []dto.EndorsementResponse `json:"endorsements"`
}

// PaymentList wraps a list reply.
type PaymentList struct {
	Payments []dto.PaymentRecordResponse `json:"payments"`
}

// LedgerServiceServer is the server API for LedgerService.
type LedgerServiceServer interface {
	GenerateSchedule(context.Context, *dto.GenerateScheduleRequest) (*dto.ScheduleResponse, error)
	ApplyPayment(context.Context, *dto.ApplyPaymentRequest) (*dto.PaymentResponse, error)
	SweepStatuses(context.Context, *SweepStatusesRequest) (*dto.SweepResponse, error)
	RequestPenaltyEndorsement(context.Context, *dto.RequestEndorsementRequest) (*dto.EndorsementResponse, error)
	ResolveEndorsement(context.Context, *dto.ResolveEndorsementRequest) (*dto.EndorsementResponse, error)
	ListEndorsements(context.Context, *dto.ListEndorsementsRequest) (*EndorsementList, error)
	GetLoan(context.Context, *dto.GetLoanRequest) (*dto.LoanDetailResponse, error)
	GetLoanLedger(context.Context, *dto.GetLoanRequest) (*dto.LedgerResponse, error)
	GetBorrowerPayments(context.Context, *dto.GetBorrowerPaymentsRequest) (*PaymentList, error)
	QuoteDisbursement(context.Context, *dto.QuoteDisbursementRequest) (*dto.QuoteResponse, error)
	UpdatePeriodNote(context.Context, *dto.UpdatePeriodNoteRequest) (*dto.PeriodResponse, error)
	mustEmbedUnimplementedLedgerServiceServer()
}

// UnimplementedLedgerServiceServer provides forward-compatible default implementations.
type UnimplementedLedgerServiceServer struct{}

func (UnimplementedLedgerServiceServer) GenerateSchedule(context.Context, *dto.GenerateScheduleRequest) (*dto.ScheduleResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GenerateSchedule not implemented")
}
func (UnimplementedLedgerServiceServer) ApplyPayment(context.Context, *dto.ApplyPaymentRequest) (*dto.PaymentResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ApplyPayment not implemented")
}
func (UnimplementedLedgerServiceServer) SweepStatuses(context.Context, *SweepStatusesRequest) (*dto.SweepResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SweepStatuses not implemented")
}
func (UnimplementedLedgerServiceServer) RequestPenaltyEndorsement(context.Context, *dto.RequestEndorsementRequest) (*dto.EndorsementResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RequestPenaltyEndorsement not implemented")
}
func (UnimplementedLedgerServiceServer) ResolveEndorsement(context.Context, *dto.ResolveEndorsementRequest) (*dto.EndorsementResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ResolveEndorsement not implemented")
}
func (UnimplementedLedgerServiceServer) ListEndorsements(context.Context, *dto.ListEndorsementsRequest) (*EndorsementList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListEndorsements not implemented")
}
func (UnimplementedLedgerServiceServer) GetLoan(context.Context, *dto.GetLoanRequest) (*dto.LoanDetailResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetLoan not implemented")
}
func (UnimplementedLedgerServiceServer) GetLoanLedger(context.Context, *dto.GetLoanRequest) (*dto.LedgerResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetLoanLedger not implemented")
}
func (UnimplementedLedgerServiceServer) GetBorrowerPayments(context.Context, *dto.GetBorrowerPaymentsRequest) (*PaymentList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetBorrowerPayments not implemented")
}
func (UnimplementedLedgerServiceServer) QuoteDisbursement(context.Context, *dto.QuoteDisbursementRequest) (*dto.QuoteResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method QuoteDisbursement not implemented")
}
func (UnimplementedLedgerServiceServer) UpdatePeriodNote(context.Context, *dto.UpdatePeriodNoteRequest) (*dto.PeriodResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdatePeriodNote not implemented")
}
func (UnimplementedLedgerServiceServer) mustEmbedUnimplementedLedgerServiceServer() {}

// RegisterLedgerServiceServer registers the LedgerServiceServer with the gRPC server.
func RegisterLedgerServiceServer(s grpclib.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&ledgerServiceDesc, srv)
}

// FullMethod returns the /service/method path used by interceptors.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var ledgerServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		unary("GenerateSchedule", LedgerServiceServer.GenerateSchedule),
		unary("ApplyPayment", LedgerServiceServer.ApplyPayment),
		unary("SweepStatuses", LedgerServiceServer.SweepStatuses),
		unary("RequestPenaltyEndorsement", LedgerServiceServer.RequestPenaltyEndorsement),
		unary("ResolveEndorsement", LedgerServiceServer.ResolveEndorsement),
		unary("ListEndorsements", LedgerServiceServer.ListEndorsements),
		unary("GetLoan", LedgerServiceServer.GetLoan),
		unary("GetLoanLedger", LedgerServiceServer.GetLoanLedger),
		unary("GetBorrowerPayments", LedgerServiceServer.GetBorrowerPayments),
		unary("QuoteDisbursement", LedgerServiceServer.QuoteDisbursement),
		unary("UpdatePeriodNote", LedgerServiceServer.UpdatePeriodNote),
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "microfinance/ledger/v1/ledger.proto",
}

// unary builds the method descriptor that generated code would emit for call.
func unary[Req, Resp any](
	name string,
	call func(LedgerServiceServer, context.Context, *Req) (*Resp, error),
) grpclib.MethodDesc {
	fullMethod := FullMethod(name)
	return grpclib.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceServer), ctx, in)
			}
			info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
